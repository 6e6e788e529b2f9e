package domain

// ActionKind is the closed set of actions a request can resolve to.
type ActionKind string

const (
	ActionListRepos   ActionKind = "listRepos"
	ActionCreateRepo  ActionKind = "createRepo"
	ActionCloneRepo   ActionKind = "cloneRepo"
	ActionDockerRun   ActionKind = "dockerRun"
	ActionDockerBuild ActionKind = "dockerBuild"
	ActionUnknown     ActionKind = "unknown"
)

// KnownActions returns every routable action in keyword-heuristic priority order.
func KnownActions() []ActionKind {
	return []ActionKind{
		ActionListRepos,
		ActionCreateRepo,
		ActionCloneRepo,
		ActionDockerRun,
		ActionDockerBuild,
	}
}

func (a ActionKind) String() string {
	return string(a)
}

func (a ActionKind) IsKnown() bool {
	for _, known := range KnownActions() {
		if a == known {
			return true
		}
	}
	return false
}

// PassThrough reports whether parameters for the action are forwarded without validation.
func (a ActionKind) PassThrough() bool {
	return a == ActionDockerRun || a == ActionDockerBuild
}

// ParamKey is the internal parameter vocabulary. Container actions may carry
// additional backend-defined keys.
type ParamKey string

const (
	ParamName          ParamKey = "name"
	ParamDescription   ParamKey = "description"
	ParamIsPrivate     ParamKey = "isPrivate"
	ParamRepoURL       ParamKey = "repoUrl"
	ParamDirectory     ParamKey = "directory"
	ParamImage         ParamKey = "image"
	ParamContainerName ParamKey = "containerName"
	ParamCommand       ParamKey = "command"
	ParamPorts         ParamKey = "ports"
	ParamEnv           ParamKey = "env"
)

// CanonicalParams returns the fixed parameter vocabulary in alias-resolution order.
func CanonicalParams() []ParamKey {
	return []ParamKey{
		ParamName,
		ParamDescription,
		ParamIsPrivate,
		ParamRepoURL,
		ParamDirectory,
		ParamImage,
		ParamContainerName,
		ParamCommand,
		ParamPorts,
		ParamEnv,
	}
}

// RequiredParams is the required-parameter contract of an action.
func RequiredParams(a ActionKind) []ParamKey {
	switch a {
	case ActionCreateRepo:
		return []ParamKey{ParamName}
	case ActionCloneRepo:
		return []ParamKey{ParamRepoURL}
	default:
		return nil
	}
}

func RequiresParam(a ActionKind, key ParamKey) bool {
	for _, k := range RequiredParams(a) {
		if k == key {
			return true
		}
	}
	return false
}

// CandidateIntent is what the model emitted, before any vocabulary checks.
type CandidateIntent struct {
	ActionName string
	Parameters map[string]any
}

type ResolvedIntent struct {
	Action ActionKind
	// RawAction keeps the model's spelling for diagnostics when Action is unknown.
	RawAction  string
	Parameters map[ParamKey]any
}

type RoutingDecision struct {
	Backend  CapabilityID
	Action   ActionKind
	Endpoint string
	Payload  map[string]any
}

type BackendResponse struct {
	Backend    CapabilityID
	StatusCode int
	Body       []byte
}
