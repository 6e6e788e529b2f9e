package intent

import (
	"sort"
	"strings"

	"intentgate/internal/domain"
)

// parameterAliases lists alternative spellings per canonical key, in match
// priority order. Lookup is case-insensitive.
var parameterAliases = map[domain.ParamKey][]string{
	domain.ParamName:          {"repoName", "repo_name", "repository", "repositoryName", "repository_name", "projectName", "project_name"},
	domain.ParamDescription:   {"desc", "repoDescription", "repo_description", "about"},
	domain.ParamIsPrivate:     {"is_private", "private", "privateRepo", "private_repo"},
	domain.ParamRepoURL:       {"repo_url", "url", "repositoryUrl", "repository_url", "cloneUrl", "clone_url", "gitUrl", "git_url"},
	domain.ParamDirectory:     {"dir", "path", "targetDir", "target_dir", "destination", "dest"},
	domain.ParamImage:         {"imageName", "image_name"},
	domain.ParamContainerName: {"container_name", "container"},
	domain.ParamCommand:       {"cmd"},
	domain.ParamPorts:         {"port", "publish"},
	domain.ParamEnv:           {"environment", "envVars", "env_vars"},
}

// NormalizeParameters folds model-supplied keys onto the canonical vocabulary.
// A canonical key already present is never overwritten; otherwise the first
// matching alias wins. Keys that match nothing are kept only for
// pass-through actions. When the action requires a name and none was found,
// a single-token userText becomes the name.
func NormalizeParameters(raw map[string]any, action domain.ActionKind, userText string) map[domain.ParamKey]any {
	out := make(map[domain.ParamKey]any, len(raw))
	consumed := make(map[string]bool, len(raw))

	lowered := lowerIndex(raw)
	for _, key := range domain.CanonicalParams() {
		if v, ok := raw[string(key)]; ok {
			out[key] = v
			consumed[string(key)] = true
			continue
		}
		candidates := append([]string{string(key)}, parameterAliases[key]...)
		for _, alias := range candidates {
			original, ok := lowered[strings.ToLower(alias)]
			if !ok || consumed[original] {
				continue
			}
			out[key] = raw[original]
			consumed[original] = true
			break
		}
	}

	if action.PassThrough() {
		for k, v := range raw {
			if consumed[k] {
				continue
			}
			if _, exists := out[domain.ParamKey(k)]; exists {
				continue
			}
			out[domain.ParamKey(k)] = v
		}
	}

	if domain.RequiresParam(action, domain.ParamName) && isBlank(out[domain.ParamName]) {
		if tokens := strings.Fields(userText); len(tokens) == 1 {
			out[domain.ParamName] = tokens[0]
		}
	}
	return out
}

// MissingParameters returns the required keys of the action that are absent or blank.
func MissingParameters(action domain.ActionKind, params map[domain.ParamKey]any) []string {
	var missing []string
	for _, key := range domain.RequiredParams(action) {
		if isBlank(params[key]) {
			missing = append(missing, string(key))
		}
	}
	return missing
}

// lowerIndex maps lower-cased keys back to the original spelling. When two
// keys differ only by case the lexically smallest one is kept.
func lowerIndex(raw map[string]any) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, ok := out[lk]; !ok {
			out[lk] = k
		}
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
