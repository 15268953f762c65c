package leanimt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/assert"

	"github.com/hmzakhalid/lean-imt/hasher/concat"
)

const uimax = 9_999

var (
	cmdCount = 0
	maxDepth = 0
	debug    = false
)

func progress(i interface{}) {
	if debug {
		fmt.Printf("%v\n", i)
	}
}

// expected mirrors the tree leaf level; "" marks a tombstoned slot.
type expected struct {
	leaves []string
}

type system struct {
	t        *LeanIMT[string]
	config   *StoreConfig
	cmdCount int
}

// observed is what a command saw in the system under test, compared
// against the model in PostCondition.
type observed struct {
	err  error
	root string
	ok   bool
	size int
}

func testLeaf(n uint) string {
	return fmt.Sprintf("leaf-%d", n)
}

// referenceRoot recomputes the root the slow way, folding levels
// bottom-up with the lean rule, as an oracle for the incremental tree.
func referenceRoot(leaves []string) string {
	level := append([]string(nil), leaves...)
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, level[i]+","+level[i+1])
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

func liveLeaves(leaves []string) []string {
	live := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		if leaf != "" {
			live = append(live, leaf)
		}
	}
	return live
}

func observe(s commands.SystemUnderTest, err error) commands.Result {
	sys := s.(*system)
	sys.cmdCount++
	if err == nil {
		err = sys.t.validate()
	}
	root, ok := sys.t.Root()
	return observed{err: err, root: root, ok: ok, size: sys.t.Size()}
}

func checkObserved(state commands.State, result commands.Result) *gopter.PropResult {
	o := result.(observed)
	if o.err != nil {
		fmt.Printf("command failed: %v\n", o.err)
		return &gopter.PropResult{Status: gopter.PropFalse}
	}
	e := state.(*expected)
	if o.size != len(e.leaves) {
		fmt.Printf("size mismatch: expected=%d actual=%d\n", len(e.leaves), o.size)
		return &gopter.PropResult{Status: gopter.PropFalse}
	}
	if len(e.leaves) == 0 {
		if o.ok {
			fmt.Printf("expected empty tree, got root %q\n", o.root)
			return &gopter.PropResult{Status: gopter.PropFalse}
		}
		return &gopter.PropResult{Status: gopter.PropTrue}
	}
	if want := referenceRoot(e.leaves); !o.ok || o.root != want {
		fmt.Printf("root mismatch: expected=%q actual=%q\n", want, o.root)
		return &gopter.PropResult{Status: gopter.PropFalse}
	}
	return &gopter.PropResult{Status: gopter.PropTrue}
}

type insertCommand uint

func (n insertCommand) Run(s commands.SystemUnderTest) commands.Result {
	_, err := s.(*system).t.Insert(testLeaf(uint(n)))
	return observe(s, err)
}

func (n insertCommand) NextState(state commands.State) commands.State {
	e := state.(*expected)
	e.leaves = append(e.leaves, testLeaf(uint(n)))
	return e
}

func (n insertCommand) PreCondition(state commands.State) bool {
	for _, leaf := range state.(*expected).leaves {
		if leaf == testLeaf(uint(n)) {
			return false
		}
	}
	return true
}

func (n insertCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	progress(n)
	return checkObserved(state, result)
}

func (n insertCommand) String() string {
	return fmt.Sprintf("Insert(%s)", testLeaf(uint(n)))
}

type insertManyCommand uint

func (n insertManyCommand) batch() []string {
	return []string{
		fmt.Sprintf("batch-%d-0", uint(n)),
		fmt.Sprintf("batch-%d-1", uint(n)),
		fmt.Sprintf("batch-%d-2", uint(n)),
	}
}

func (n insertManyCommand) Run(s commands.SystemUnderTest) commands.Result {
	_, err := s.(*system).t.InsertMany(n.batch())
	return observe(s, err)
}

func (n insertManyCommand) NextState(state commands.State) commands.State {
	e := state.(*expected)
	e.leaves = append(e.leaves, n.batch()...)
	return e
}

func (n insertManyCommand) PreCondition(state commands.State) bool {
	batch := n.batch()
	for _, leaf := range state.(*expected).leaves {
		for _, b := range batch {
			if leaf == b {
				return false
			}
		}
	}
	return true
}

func (n insertManyCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	progress(n)
	return checkObserved(state, result)
}

func (n insertManyCommand) String() string {
	return fmt.Sprintf("InsertMany(%v)", n.batch())
}

type updateCommand uint

func (n updateCommand) Run(s commands.SystemUnderTest) commands.Result {
	m := s.(*system).t
	live := liveLeaves(m.Leaves())
	oldLeaf := live[int(n)%len(live)]
	newLeaf := oldLeaf + "*"
	proof, err := m.GenerateProof(oldLeaf)
	if err != nil {
		return observe(s, fmt.Errorf("generate proof: %w", err))
	}
	_, err = m.Update(oldLeaf, newLeaf, proof.Siblings)
	if errors.Is(err, ErrDuplicateLeaf) && m.Has(newLeaf) {
		// the model makes the same no-op decision
		err = nil
	}
	return observe(s, err)
}

func (n updateCommand) NextState(state commands.State) commands.State {
	e := state.(*expected)
	live := liveLeaves(e.leaves)
	oldLeaf := live[int(n)%len(live)]
	newLeaf := oldLeaf + "*"
	for _, leaf := range e.leaves {
		if leaf == newLeaf {
			return e
		}
	}
	for i, leaf := range e.leaves {
		if leaf == oldLeaf {
			e.leaves[i] = newLeaf
			break
		}
	}
	return e
}

func (n updateCommand) PreCondition(state commands.State) bool {
	return len(liveLeaves(state.(*expected).leaves)) > 0
}

func (n updateCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	progress(n)
	return checkObserved(state, result)
}

func (n updateCommand) String() string {
	return fmt.Sprintf("Update(#%d)", uint(n))
}

type removeCommand uint

func (n removeCommand) Run(s commands.SystemUnderTest) commands.Result {
	m := s.(*system).t
	live := liveLeaves(m.Leaves())
	leaf := live[int(n)%len(live)]
	proof, err := m.GenerateProof(leaf)
	if err != nil {
		return observe(s, fmt.Errorf("generate proof: %w", err))
	}
	_, err = m.Remove(leaf, proof.Siblings)
	if err == nil && m.Has(leaf) {
		err = fmt.Errorf("removed leaf %q still present", leaf)
	}
	return observe(s, err)
}

func (n removeCommand) NextState(state commands.State) commands.State {
	e := state.(*expected)
	live := liveLeaves(e.leaves)
	leaf := live[int(n)%len(live)]
	for i := range e.leaves {
		if e.leaves[i] == leaf {
			e.leaves[i] = ""
			break
		}
	}
	return e
}

func (n removeCommand) PreCondition(state commands.State) bool {
	return len(liveLeaves(state.(*expected).leaves)) > 0
}

func (n removeCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	progress(n)
	return checkObserved(state, result)
}

func (n removeCommand) String() string {
	return fmt.Sprintf("Remove(#%d)", uint(n))
}

type proofCommand uint

func (n proofCommand) Run(s commands.SystemUnderTest) commands.Result {
	m := s.(*system).t
	var err error
	if m.Size() > 0 {
		index := int(n) % m.Size()
		var proof MerkleProof[string]
		proof, err = m.GenerateProofAt(index)
		if err == nil && !m.VerifyProof(proof) {
			err = fmt.Errorf("proof at %d does not verify", index)
		}
	}
	return observe(s, err)
}

func (n proofCommand) NextState(state commands.State) commands.State {
	return state
}

func (n proofCommand) PreCondition(state commands.State) bool {
	return true
}

func (n proofCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	progress(n)
	return checkObserved(state, result)
}

func (n proofCommand) String() string {
	return fmt.Sprintf("Proof(#%d)", uint(n))
}

var saveLoadCommand = &commands.ProtoCommand{
	Name: "SaveLoad",
	RunFunc: func(s commands.SystemUnderTest) commands.Result {
		sys := s.(*system)
		snapshot, err := sys.t.Save(ctx, sys.config)
		if err != nil {
			return observe(s, fmt.Errorf("save: %w", err))
		}
		loaded, err := Load(ctx, snapshot, sys.t.combine, sys.config)
		if err != nil {
			return observe(s, fmt.Errorf("load: %w", err))
		}
		wantRoot, wantOk := sys.t.Root()
		gotRoot, gotOk := loaded.Root()
		if wantOk != gotOk || wantRoot != gotRoot {
			err = fmt.Errorf("loaded root %q does not match %q", gotRoot, wantRoot)
		}
		return observe(s, err)
	},
	NextStateFunc:    func(state commands.State) commands.State { return state },
	PreConditionFunc: func(state commands.State) bool { return true },
	PostConditionFunc: func(state commands.State, result commands.Result) *gopter.PropResult {
		progress("SaveLoad")
		return checkObserved(state, result)
	},
}

func uintCommandGen(toCommand func(uint) commands.Command, fromCommand func(interface{}) uint) gopter.Gen {
	return gen.UIntRange(0, uimax).Map(func(value uint) commands.Command {
		return toCommand(value)
	}).WithShrinker(func(v interface{}) gopter.Shrink {
		return gen.UIntShrinker(fromCommand(v)).Map(func(value uint) commands.Command {
			return toCommand(value)
		})
	})
}

var genInsert = uintCommandGen(
	func(value uint) commands.Command { return insertCommand(value) },
	func(command interface{}) uint { return uint(command.(insertCommand)) })

var genInsertMany = uintCommandGen(
	func(value uint) commands.Command { return insertManyCommand(value) },
	func(command interface{}) uint { return uint(command.(insertManyCommand)) })

var genUpdate = uintCommandGen(
	func(value uint) commands.Command { return updateCommand(value) },
	func(command interface{}) uint { return uint(command.(updateCommand)) })

var genRemove = uintCommandGen(
	func(value uint) commands.Command { return removeCommand(value) },
	func(command interface{}) uint { return uint(command.(removeCommand)) })

var genProof = uintCommandGen(
	func(value uint) commands.Command { return proofCommand(value) },
	func(command interface{}) uint { return uint(command.(proofCommand)) })

var treeCommands = &commands.ProtoCommands{
	NewSystemUnderTestFunc: func(initialState commands.State) commands.SystemUnderTest {
		tree, err := New(concat.New(","))
		if err != nil {
			panic(err)
		}
		for _, leaf := range initialState.(*expected).leaves {
			if _, err := tree.Insert(leaf); err != nil {
				panic(err)
			}
		}
		progress("NewSystem")
		config := &StoreConfig{
			StoreImmutablePartsWith: NewInMemoryStore(),
			SnapshotCache:           NewSnapshotCache(100),
		}
		return &system{tree, config, 0}
	},
	DestroySystemUnderTestFunc: func(s commands.SystemUnderTest) {
		sys := s.(*system)
		if sys.t.Depth() > maxDepth {
			maxDepth = sys.t.Depth()
		}
		cmdCount += sys.cmdCount
	},
	InitialStateGen: gen.SliceOf(gen.UIntRange(0, uimax)).Map(func(values []uint) *expected {
		seen := map[string]struct{}{}
		leaves := make([]string, 0, len(values))
		for _, v := range values {
			leaf := testLeaf(v)
			if _, dup := seen[leaf]; dup {
				continue
			}
			seen[leaf] = struct{}{}
			leaves = append(leaves, leaf)
		}
		return &expected{leaves: leaves}
	}),
	InitialPreConditionFunc: func(state commands.State) bool {
		_ = state.(*expected)
		return true
	},
	GenCommandFunc: func(state commands.State) gopter.Gen {
		return gen.Weighted(
			[]gen.WeightedGen{
				{Weight: 100, Gen: genInsert},
				{Weight: 30, Gen: genInsertMany},
				{Weight: 50, Gen: genUpdate},
				{Weight: 30, Gen: genRemove},
				{Weight: 50, Gen: genProof},
				{Weight: 5, Gen: gen.Const(saveLoadCommand)},
			},
		)
	},
}

func TestExerciser(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	if !testing.Short() {
		parameters.MaxSize = 512
	}
	properties := gopter.NewProperties(parameters)
	properties.Property("leanimt exerciser", commands.Prop(treeCommands))
	properties.TestingRun(t)
	if !t.Failed() && !testing.Short() {
		assert.GreaterOrEqual(t, maxDepth, 3)
		fmt.Printf("deepest tree: %d\n", maxDepth)
		fmt.Printf("successful commands: %d\n", cmdCount)
	}
}
