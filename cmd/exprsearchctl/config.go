package main

import (
	"encoding/json"
	"math"
	"os"

	searchapi "exprsearch/pkg/exprsearch"
)

func loadRunRequestFromConfig(path string) (searchapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return searchapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return searchapi.RunRequest{}, err
	}

	var req searchapi.RunRequest
	if v, ok := asString(raw["benchmark"]); ok {
		req.Benchmark = v
	}
	if v, ok := asInt(raw["batch_size"]); ok {
		req.BatchSize = v
	}
	if v, ok := asInt(raw["n_samples"]); ok {
		req.NSamples = v
	}
	if v, ok := asInt(raw["n_epochs"]); ok {
		req.NEpochs = v
	}
	if v, ok := asInt(raw["max_length"]); ok {
		req.MaxLength = v
	}
	if v, ok := asFloat64(raw["epsilon"]); ok {
		req.Epsilon = v
	}
	if v, ok := asString(raw["baseline"]); ok {
		req.Baseline = v
	}
	if v, ok := asFloat64(raw["alpha"]); ok {
		req.Alpha = v
	}
	if v, ok := asBool(raw["b_jumpstart"]); ok {
		req.BJumpstart = v
	}
	if v, ok := asBool(raw["early_stopping"]); ok {
		req.EarlyStopping = v
	}
	if v, ok := asBool(raw["eval_all"]); ok {
		req.EvalAll = v
	}
	if v, ok := asBool(raw["track_base_reward"]); ok {
		req.TrackBaseReward = v
	}
	if v, ok := asBool(raw["use_memory"]); ok {
		req.UseMemory = v
	}
	if v, ok := asInt(raw["memory_capacity"]); ok {
		req.MemoryCapacity = v
	}
	if v, ok := asInt(raw["priority_k"]); ok {
		req.PriorityK = v
	}
	if v, ok := asInt(raw["aux_batch_size"]); ok {
		req.AuxBatchSize = v
	}
	if v, ok := asBool(raw["evolve"]); ok {
		req.Evolve = v
	}
	if v, ok := asInt(raw["evolve_rows"]); ok {
		req.EvolveRows = v
	}
	if v, ok := asBool(raw["evolve_feedback"]); ok {
		req.EvolveFeedback = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
