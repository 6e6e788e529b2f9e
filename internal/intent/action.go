package intent

import (
	"strings"

	"intentgate/internal/domain"
)

// actionAliases maps case-folded spellings to actions. Exact matches here
// always win over keyword heuristics.
var actionAliases = map[string]domain.ActionKind{
	"listrepos":       domain.ActionListRepos,
	"list_repos":      domain.ActionListRepos,
	"list-repos":      domain.ActionListRepos,
	"git.list_repos":  domain.ActionListRepos,
	"git.listrepos":   domain.ActionListRepos,
	"git.repos.list":  domain.ActionListRepos,
	"createrepo":      domain.ActionCreateRepo,
	"create_repo":     domain.ActionCreateRepo,
	"create-repo":     domain.ActionCreateRepo,
	"git.create_repo": domain.ActionCreateRepo,
	"git.createrepo":  domain.ActionCreateRepo,
	"clonerepo":       domain.ActionCloneRepo,
	"clone_repo":      domain.ActionCloneRepo,
	"clone-repo":      domain.ActionCloneRepo,
	"git.clone_repo":  domain.ActionCloneRepo,
	"git.clonerepo":   domain.ActionCloneRepo,
	"git.clone":       domain.ActionCloneRepo,
	"dockerrun":       domain.ActionDockerRun,
	"docker_run":      domain.ActionDockerRun,
	"docker-run":      domain.ActionDockerRun,
	"docker.run":      domain.ActionDockerRun,
	"startcontainer":  domain.ActionDockerRun,
	"start_container": domain.ActionDockerRun,
	"dockerbuild":     domain.ActionDockerBuild,
	"docker_build":    domain.ActionDockerBuild,
	"docker-build":    domain.ActionDockerBuild,
	"docker.build":    domain.ActionDockerBuild,
	"build_image":     domain.ActionDockerBuild,
}

type keywordRule struct {
	action domain.ActionKind
	verbs  []string
	nouns  []string
}

// keywordRules are evaluated in order; the first rule whose verb and noun
// both occur in the input wins.
var keywordRules = []keywordRule{
	{action: domain.ActionListRepos, verbs: []string{"list", "show"}, nouns: []string{"repo"}},
	{action: domain.ActionCreateRepo, verbs: []string{"create", "new", "make"}, nouns: []string{"repo"}},
	{action: domain.ActionCloneRepo, verbs: []string{"clone"}, nouns: []string{"repo"}},
	{action: domain.ActionDockerRun, verbs: []string{"run", "start"}, nouns: []string{"docker", "container"}},
	{action: domain.ActionDockerBuild, verbs: []string{"build"}, nouns: []string{"docker", "image"}},
}

// NormalizeAction maps a model-supplied action name onto the closed action set.
func NormalizeAction(raw string) domain.ActionKind {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.ActionUnknown
	}
	if action, ok := actionAliases[key]; ok {
		return action
	}
	for _, rule := range keywordRules {
		if containsAny(key, rule.verbs) && containsAny(key, rule.nouns) {
			return rule.action
		}
	}
	return domain.ActionUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
