package validator

import "sort"

// knownTriggers is the accepted workflow trigger allowlist.
var knownTriggers = map[string]bool{
	"push":                true,
	"pull_request":        true,
	"pull_request_target": true,
	"workflow_dispatch":   true,
	"workflow_call":       true,
	"workflow_run":        true,
	"schedule":            true,
	"release":             true,
	"repository_dispatch": true,
	"issues":              true,
	"issue_comment":       true,
	"create":              true,
	"delete":              true,
	"deployment":          true,
	"deployment_status":   true,
	"merge_group":         true,
	"page_build":          true,
	"registry_package":    true,
	"status":              true,
	"watch":               true,
	"fork":                true,
	"gollum":              true,
	"label":               true,
	"milestone":           true,
	"public":              true,
}

// knownRunners is the hosted-runner label table.
var knownRunners = map[string]bool{
	"ubuntu-latest":  true,
	"ubuntu-24.04":   true,
	"ubuntu-22.04":   true,
	"ubuntu-20.04":   true,
	"windows-latest": true,
	"windows-2022":   true,
	"windows-2019":   true,
	"macos-latest":   true,
	"macos-14":       true,
	"macos-13":       true,
	"macos-12":       true,
	"self-hosted":    true,
}

// actionSpec describes the accepted inputs of a well-known action.
type actionSpec struct {
	required []string
	inputs   map[string]bool
}

// knownActions covers the actions common enough to cross-check inputs for.
// Unknown actions are left alone.
var knownActions = map[string]actionSpec{
	"actions/checkout": {
		inputs: map[string]bool{
			"repository": true, "ref": true, "token": true, "path": true,
			"fetch-depth": true, "submodules": true, "lfs": true,
			"persist-credentials": true, "sparse-checkout": true,
		},
	},
	"actions/setup-python": {
		required: []string{"python-version"},
		inputs: map[string]bool{
			"python-version": true, "cache": true, "architecture": true,
			"token": true, "cache-dependency-path": true, "allow-prereleases": true,
		},
	},
	"actions/setup-node": {
		required: []string{"node-version"},
		inputs: map[string]bool{
			"node-version": true, "cache": true, "registry-url": true,
			"scope": true, "cache-dependency-path": true, "check-latest": true,
		},
	},
	"actions/cache": {
		required: []string{"key", "path"},
		inputs: map[string]bool{
			"key": true, "path": true, "restore-keys": true,
			"enableCrossOsArchive": true, "fail-on-cache-miss": true,
		},
	},
	"actions/upload-artifact": {
		required: []string{"path"},
		inputs: map[string]bool{
			"name": true, "path": true, "retention-days": true,
			"if-no-files-found": true, "compression-level": true,
		},
	},
	"actions/download-artifact": {
		inputs: map[string]bool{
			"name": true, "path": true, "pattern": true, "merge-multiple": true,
		},
	},
}

// nearestRunners suggests known runner labels close to the unknown one,
// ranked by longest-common-substring similarity. Up to three suggestions,
// only above half similarity.
func nearestRunners(label string) []string {
	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	for name := range knownRunners {
		if s := similarity(label, name); s >= 0.5 {
			candidates = append(candidates, scored{name, s})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// similarity is the longest-common-substring length over the longer input's
// length, in [0,1].
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > longest {
					longest = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(longest) / float64(denom)
}
