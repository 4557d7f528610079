package matcher

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/praetorian-inc/dfamatch/pkg/machine"
	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

func builtin(t testing.TB, ids ...string) []*types.Machine {
	t.Helper()
	all, err := machine.NewLoader().LoadBuiltinMachines()
	require.NoError(t, err)
	if len(ids) == 0 {
		return all
	}

	var out []*types.Machine
	for _, id := range ids {
		for _, m := range all {
			if m.ID == id {
				out = append(out, m)
			}
		}
	}
	require.Len(t, out, len(ids))
	return out
}

// aMachine accepts runs of 'a' tagged "a".
func aMachine(id string) *types.Machine {
	m := &types.Machine{
		ID:   id,
		Name: strings.ToUpper(id),
		DFA: statemachine.DFA[byte, string]{
			StateTable: []statemachine.Transitions[byte]{{}, {'a': 2}, {'a': 2}},
			Accepting:  []bool{false, false, true},
			Tags:       [][]string{nil, nil, {"a"}},
		},
	}
	m.StructuralID = m.ComputeStructuralID()
	return m
}

func TestNewMachineMatcher_Errors(t *testing.T) {
	_, err := NewMachineMatcher(Config{})
	assert.ErrorContains(t, err, "no machines")

	bad := aMachine("bad")
	bad.DFA.StateTable[1]['a'] = 7
	_, err = NewMachineMatcher(Config{Machines: []*types.Machine{bad}})
	assert.True(t, errors.Is(err, &statemachine.TableError{Kind: statemachine.StateOutOfRange}), "got %v", err)
}

func TestMachineMatcher_Locations(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.number.1")})
	require.NoError(t, err)
	defer m.Close()

	content := []byte("a = 42\nb = 3.14\n")
	matches, err := m.Match(content)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, types.ComputeBlobID(content), first.BlobID)
	assert.Equal(t, "dfa.number.1", first.MachineID)
	assert.Equal(t, "Decimal Number", first.MachineName)
	assert.Equal(t, []string{"integer", "number"}, first.Tags)
	assert.Equal(t, types.OffsetSpan{Start: 4, End: 6}, first.Location.Offset)
	assert.Equal(t, types.SourcePoint{Line: 1, Column: 5}, first.Location.Source.Start)
	assert.Equal(t, types.SourcePoint{Line: 1, Column: 6}, first.Location.Source.End)
	assert.Equal(t, "42", string(first.Snippet.Matching))
	assert.Len(t, first.StructuralID, 40)
	assert.Len(t, first.FindingID, 40)

	second := matches[1]
	assert.Equal(t, []string{"decimal", "number"}, second.Tags)
	assert.Equal(t, "3.14", string(second.Snippet.Matching))
	assert.Equal(t, 2, second.Location.Source.Start.Line)
	assert.Equal(t, 5, second.Location.Source.Start.Column)
}

func TestMachineMatcher_MatchWithBlobID(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: []*types.Machine{aMachine("a")}})
	require.NoError(t, err)

	blobID := types.ComputeBlobID([]byte("something else"))
	matches, err := m.MatchWithBlobID([]byte("xaax"), blobID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, blobID, matches[0].BlobID)
}

func TestMachineMatcher_OrderedByOffset(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.hexcolor.1", "dfa.number.1")})
	require.NoError(t, err)

	matches, err := m.Match([]byte("1 #abc 2 #123456"))
	require.NoError(t, err)

	var got []string
	for _, match := range matches {
		got = append(got, string(match.Snippet.Matching))
	}
	// The digits inside the long color are also a number.
	assert.Equal(t, []string{"1", "#abc", "2", "#123456", "123456"}, got)
}

func TestMachineMatcher_PrefilterSkips(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.hexcolor.1", "dfa.number.1")})
	require.NoError(t, err)

	result, err := m.MatchDetailed([]byte("no colors, only 7"), types.BlobID{})
	require.NoError(t, err)

	assert.Len(t, result.Matches, 1)
	assert.Equal(t, MachineSkipped, result.MachineStats["dfa.hexcolor.1"].Status)
	assert.Equal(t, MachineCompleted, result.MachineStats["dfa.number.1"].Status)
	assert.Equal(t, 1, result.MachineStats["dfa.number.1"].Matches)
	assert.Equal(t, ResultSummary{TotalMachines: 2, CompletedMachines: 1, SkippedMachines: 1}, result.Summary)
}

func TestMachineMatcher_Dedupe(t *testing.T) {
	content := []byte("7 7 7 8")

	byLocation, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.number.1")})
	require.NoError(t, err)
	matches, err := byLocation.Match(content)
	require.NoError(t, err)
	assert.Len(t, matches, 4)

	byContent, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.number.1"), Dedupe: DedupeByContent})
	require.NoError(t, err)
	matches, err = byContent.Match(content)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "7", string(matches[0].Snippet.Matching))
	assert.Equal(t, "8", string(matches[1].Snippet.Matching))
}

func TestMachineMatcher_ContextLines(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.hexcolor.1"), ContextLines: 1})
	require.NoError(t, err)

	matches, err := m.Match([]byte("body {\n  color: #fff;\n}\n"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "body {\n  color: ", string(matches[0].Snippet.Before))
	assert.Equal(t, "#fff", string(matches[0].Snippet.Matching))
	assert.Equal(t, ";\n", string(matches[0].Snippet.After))
}

func TestMachineMatcher_MalformedTableStrict(t *testing.T) {
	broken := aMachine("broken")
	m, err := NewMachineMatcher(Config{Machines: []*types.Machine{broken}})
	require.NoError(t, err)

	// Tables are shared, not copied: corrupt it after validation.
	broken.DFA.StateTable[2]['a'] = 9

	_, err = m.Match([]byte("aaa"))
	var machineErr *MachineError
	require.True(t, errors.As(err, &machineErr), "got %v", err)
	assert.Equal(t, "broken", machineErr.MachineID)
	assert.Contains(t, err.Error(), "machine broken failed")
}

func TestMachineMatcher_MalformedTableTolerant(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	broken := aMachine("broken")
	healthy := aMachine("healthy")
	healthy.DFA.Tags[2] = []string{"ok"}

	m, err := NewMachineMatcher(Config{
		Machines: []*types.Machine{broken, healthy},
		Options:  Options{Tolerant: true},
		Logger:   zap.New(core),
	})
	require.NoError(t, err)

	broken.DFA.StateTable[2]['a'] = 9

	result, err := m.MatchDetailed([]byte("aaa"), types.BlobID{})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "healthy", result.Matches[0].MachineID)

	stat := result.MachineStats["broken"]
	assert.Equal(t, MachineFailed, stat.Status)
	assert.Error(t, stat.Error)
	assert.Equal(t, 1, result.Summary.FailedMachines)
	assert.Equal(t, 1, result.Summary.CompletedMachines)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "broken", logs.All()[0].ContextMap()["machine"])
}

func TestMachineMatcher_ParallelMatchesSequential(t *testing.T) {
	machines := builtin(t, "dfa.number.1", "dfa.hexcolor.1")
	m, err := NewMachineMatcher(Config{Machines: machines})
	require.NoError(t, err)

	line := "n=12 #abc\n"
	large := []byte(strings.Repeat(line, 2000))
	require.GreaterOrEqual(t, len(large), parallelThreshold)

	matches, err := m.Match(large)
	require.NoError(t, err)
	require.Len(t, matches, 4000)

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Location.Offset.Start, matches[i].Location.Offset.Start)
	}

	small, err := m.Match([]byte(line))
	require.NoError(t, err)
	require.Len(t, small, 2)
	assert.Equal(t, small[0].Tags, matches[0].Tags)
	assert.Equal(t, small[1].Tags, matches[1].Tags)
	assert.Equal(t, int64(len(line)*1999+5), matches[3999].Location.Offset.Start)
}

func TestMachineMatcher_TagsAreCopies(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: []*types.Machine{aMachine("a")}})
	require.NoError(t, err)

	matches, err := m.Match([]byte("a"))
	require.NoError(t, err)
	matches[0].Tags[0] = "mutated"

	matches, err = m.Match([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, matches[0].Tags)
}

// Run with -race: the prefilter and compiled tables are shared by every scan.
func TestMachineMatcher_ConcurrentUse(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t)})
	require.NoError(t, err)

	content := []byte("x = 10; color: #fff\r\ny = 2.5\n")
	want, err := m.Match(content)
	require.NoError(t, err)
	require.NotEmpty(t, want)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				got, err := m.Match(content)
				if !assert.NoError(t, err, "goroutine %d", i) || !assert.Equal(t, want, got, "goroutine %d", i) {
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMachineStatus_String(t *testing.T) {
	assert.Equal(t, "completed", MachineCompleted.String())
	assert.Equal(t, "skipped", MachineSkipped.String())
	assert.Equal(t, "error", MachineFailed.String())
	assert.Equal(t, "MachineStatus(9)", MachineStatus(9).String())
}

func BenchmarkMachineMatcher(b *testing.B) {
	m, err := NewMachineMatcher(Config{Machines: builtin(b)})
	if err != nil {
		b.Fatal(err)
	}

	block := "width: 100px; color: #a1b2c3; ratio = 1.618\r\nname_2 = value\n"
	for _, size := range []int{1 << 10, 1 << 14, 1 << 20} {
		var buf bytes.Buffer
		for buf.Len() < size {
			buf.WriteString(block)
		}
		content := buf.Bytes()[:size]

		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			b.SetBytes(int64(len(content)))
			for b.Loop() {
				if _, err := m.Match(content); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestMachineMatcher_Apply(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: builtin(t, "dfa.number.1", "dfa.hexcolor.1")})
	require.NoError(t, err)

	var calls []string
	record := func(tag string) statemachine.Action[byte] {
		return func(start, end int, sub []byte) {
			calls = append(calls, fmt.Sprintf("%s %d-%d %s", tag, start, end, sub))
		}
	}

	err = m.Apply("dfa.number.1", []byte("x 12.5 7"), statemachine.Actions[byte, string]{
		"decimal": record("decimal"),
		"integer": record("integer"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"decimal 2-5 12.5", "integer 7-7 7"}, calls)

	assert.NotNil(t, m.Machine("dfa.hexcolor.1"))
	assert.Nil(t, m.Machine("dfa.missing.1"))
}

func TestMachineMatcher_ApplyErrors(t *testing.T) {
	broken := aMachine("broken")
	m, err := NewMachineMatcher(Config{Machines: []*types.Machine{broken}})
	require.NoError(t, err)

	err = m.Apply("nope", []byte("a"), nil)
	assert.ErrorContains(t, err, `unknown machine "nope"`)

	broken.DFA.StateTable[2]['a'] = 9
	err = m.Apply("broken", []byte("aa"), statemachine.Actions[byte, string]{"a": func(int, int, []byte) {}})
	var machineErr *MachineError
	assert.True(t, errors.As(err, &machineErr), "got %v", err)
}

func TestMachineMatcher_ApplyActionPanicPropagates(t *testing.T) {
	m, err := NewMachineMatcher(Config{Machines: []*types.Machine{aMachine("a.1")}})
	require.NoError(t, err)

	assert.PanicsWithValue(t, "action failed", func() {
		_ = m.Apply("a.1", []byte("a"), statemachine.Actions[byte, string]{
			"a": func(int, int, []byte) { panic("action failed") },
		})
	})
}
