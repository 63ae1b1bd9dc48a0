package fill

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultBatchSize is how many fields are filled concurrently per batch.
const DefaultBatchSize = 20

// Orchestrator fills form fields from case data in bounded-parallel batches.
// Batches run strictly in order; fields inside a batch run concurrently with
// no defined completion order. Citizenship forms routinely carry 100+ fields,
// so each field's failure is isolated instead of aborting the pass.
type Orchestrator struct {
	batchSize int
}

// NewOrchestrator returns an Orchestrator; batchSize <= 0 selects the default.
func NewOrchestrator(batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Orchestrator{batchSize: batchSize}
}

type task struct {
	field string
	value string
}

// Fill resolves every field source against dataRoot and writes the non-empty
// values into form. Fields with empty or missing data are skipped and listed
// in Result.EmptyFields; per-field set failures are collected as data in
// Result.Errors. filled + errors + empty always equals TotalFields.
func (o *Orchestrator) Fill(ctx context.Context, form Form, fields FieldMap, dataRoot map[string]interface{}) Result {
	res := Result{
		TotalFields: len(fields),
		EmptyFields: []string{},
		Errors:      []FieldError{},
	}

	// Resolve everything up front (composites included) so batching only
	// ever handles plain strings.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var tasks []task
	for _, name := range names {
		value := resolveSource(fields[name], dataRoot)
		if value == "" {
			res.EmptyFields = append(res.EmptyFields, name)
			continue
		}
		tasks = append(tasks, task{field: name, value: value})
	}

	var mu sync.Mutex
	for start := 0; start < len(tasks); start += o.batchSize {
		if err := ctx.Err(); err != nil {
			// record what we never attempted so nothing is silently dropped
			mu.Lock()
			for _, t := range tasks[start:] {
				res.Errors = append(res.Errors, FieldError{Field: t.field, Err: "fill canceled: " + err.Error()})
			}
			mu.Unlock()
			return res
		}

		end := start + o.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		var wg sync.WaitGroup
		for _, t := range tasks[start:end] {
			wg.Add(1)
			go func(t task) {
				defer wg.Done()
				err := form.SetField(t.field, t.value)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Errors = append(res.Errors, FieldError{Field: t.field, Err: err.Error()})
					return
				}
				res.FilledCount++
			}(t)
		}
		wg.Wait()
	}

	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].Field < res.Errors[j].Field })
	return res
}

func resolveSource(src Source, dataRoot map[string]interface{}) string {
	switch src.Kind {
	case SourceComposite:
		sep := src.Separator
		if sep == "" {
			sep = " "
		}
		var parts []string
		for _, p := range src.Paths {
			if v := resolvePath(p, dataRoot); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, sep)
	default:
		if len(src.Paths) == 0 {
			return ""
		}
		return resolvePath(src.Paths[0], dataRoot)
	}
}

// resolvePath walks a dotted path through nested maps. Missing segments and
// nil leaves resolve to "" (an empty field, not an error).
func resolvePath(path string, dataRoot map[string]interface{}) string {
	if path == "" {
		return ""
	}
	var current interface{} = dataRoot
	for _, seg := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = node[seg]
		if !ok {
			return ""
		}
	}
	return stringify(current)
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
