package dataflow

import (
	"maps"
)

// Strategy names how several upstream records combine into one input record.
type Strategy string

const (
	// StrategyAppend lets later sources overwrite earlier ones on key collision.
	StrategyAppend Strategy = "append"
	// StrategyPrepend keeps the first value seen for a key.
	StrategyPrepend Strategy = "prepend"
	// StrategyReplace behaves like StrategyAppend.
	StrategyReplace Strategy = "replace"
	// StrategyMergeNested deep-merges nested maps. Arrays are overwritten.
	StrategyMergeNested Strategy = "merge_nested"
)

// Known reports whether the strategy is supported.
func (s Strategy) Known() bool {
	switch s {
	case StrategyAppend, StrategyPrepend, StrategyReplace, StrategyMergeNested:
		return true
	default:
		return false
	}
}

// Merge combines sources in order. An empty strategy means append; an unknown
// one falls back to append and logs a warning.
func (r *Resolver) Merge(strategy Strategy, sources ...map[string]any) map[string]any {
	if strategy == "" {
		strategy = StrategyAppend
	}

	if !strategy.Known() {
		r.logger.Warn("Unknown merge strategy, falling back to append", "strategy", strategy)

		strategy = StrategyAppend
	}

	result := make(map[string]any)

	for _, source := range sources {
		switch strategy {
		case StrategyPrepend:
			for key, value := range source {
				if _, exists := result[key]; !exists {
					result[key] = value
				}
			}
		case StrategyMergeNested:
			result = mergeNested(result, source)
		default:
			maps.Copy(result, source)
		}
	}

	return result
}

// mergeNested returns dst with src merged in. Nested maps are copied, never
// mutated, so upstream outputs stay untouched.
func mergeNested(dst, src map[string]any) map[string]any {
	result := maps.Clone(dst)
	if result == nil {
		result = make(map[string]any)
	}

	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := result[key].(map[string]any)

		if srcIsMap && dstIsMap {
			result[key] = mergeNested(dstMap, srcMap)

			continue
		}

		if srcIsMap {
			result[key] = mergeNested(nil, srcMap)

			continue
		}

		result[key] = value
	}

	return result
}
