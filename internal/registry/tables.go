package registry

// Canonical replacement tables shared by the fix generator and the
// per-pattern suggestion functions. Keys are the malformed spellings found
// in the wild; values are the accepted canonical forms.

// ActionVersions maps well-known actions to their current pinned tag. Used
// both to complete bare `uses:` references and to repair truncated `@` /
// `@v` suffixes.
var ActionVersions = map[string]string{
	"actions/checkout":           "actions/checkout@v4",
	"actions/setup-python":       "actions/setup-python@v5",
	"actions/setup-node":         "actions/setup-node@v4",
	"actions/setup-java":         "actions/setup-java@v4",
	"actions/cache":              "actions/cache@v4",
	"actions/upload-artifact":    "actions/upload-artifact@v4",
	"actions/download-artifact":  "actions/download-artifact@v4",
	"docker/setup-buildx-action": "docker/setup-buildx-action@v3",
	"docker/login-action":        "docker/login-action@v3",
	"docker/build-push-action":   "docker/build-push-action@v5",
	"hashicorp/setup-terraform":  "hashicorp/setup-terraform@v3",
	"gitleaks/gitleaks-action":   "gitleaks/gitleaks-action@v2",
	"aquasecurity/trivy-action":  "aquasecurity/trivy-action@master",
	"anchore/sbom-action":        "anchore/sbom-action@v0",
	"azure/k8s-deploy":           "azure/k8s-deploy@v1",
}

// DeprecatedActions maps superseded action tags to their replacements.
var DeprecatedActions = map[string]string{
	"actions/checkout@v1":        "actions/checkout@v4",
	"actions/checkout@v2":        "actions/checkout@v4",
	"actions/checkout@v3":        "actions/checkout@v4",
	"actions/setup-python@v1":    "actions/setup-python@v5",
	"actions/setup-python@v2":    "actions/setup-python@v5",
	"actions/setup-python@v3":    "actions/setup-python@v5",
	"actions/setup-python@v4":    "actions/setup-python@v5",
	"actions/setup-node@v1":      "actions/setup-node@v4",
	"actions/setup-node@v2":      "actions/setup-node@v4",
	"actions/setup-node@v3":      "actions/setup-node@v4",
	"actions/cache@v1":           "actions/cache@v4",
	"actions/cache@v2":           "actions/cache@v4",
	"actions/cache@v3":           "actions/cache@v4",
	"actions/upload-artifact@v1": "actions/upload-artifact@v4",
	"actions/upload-artifact@v2": "actions/upload-artifact@v4",
	"actions/upload-artifact@v3": "actions/upload-artifact@v4",
}

// RunnerFixes maps garbled runner labels to real ones. Longest keys are
// applied first so partial spellings never clobber longer ones.
var RunnerFixes = map[string]string{
	"ubuntu-lat":    "ubuntu-latest",
	"ubuntu-lates":  "ubuntu-latest",
	"windows-lat":   "windows-latest",
	"windows-lates": "windows-latest",
	"macos-lat":     "macos-latest",
	"macos-lates":   "macos-latest",
	"ubuntu-18.04":  "ubuntu-22.04",
	"ubuntu-20":     "ubuntu-20.04",
	"ubuntu-22":     "ubuntu-22.04",
}

// EnvVarFixes maps truncated environment-variable names to the intended
// spelling.
var EnvVarFixes = map[string]string{
	"NODE_VERSIO":      "NODE_VERSION",
	"PYTHON_VERSIO":    "PYTHON_VERSION",
	"JAVA_VERSIO":      "JAVA_VERSION",
	"TERRAFORM_VERSIO": "TERRAFORM_VERSION",
	"KUBECTL_VERSIO":   "KUBECTL_VERSION",
	"HELM_VERSIO":      "HELM_VERSION",
	"REGISTR":          "REGISTRY",
	"IMAGE_NAM":        "IMAGE_NAME",
}

// PythonPathFixes maps misspellings of PYTHONPATH.
var PythonPathFixes = map[string]string{
	"PYTHONPTH":   "PYTHONPATH",
	"PYTHPATH":    "PYTHONPATH",
	"PYTHON_PATH": "PYTHONPATH",
	"PYPATH":      "PYTHONPATH",
	"PYTHOH":      "PYTHONPATH",
	"PYTHATH":     "PYTHONPATH",
}

// FileRefFixes maps requirements-file typos.
var FileRefFixes = map[string]string{
	"requirement.txt": "requirements.txt",
	"requir.txt":      "requirements.txt",
	"requirements.tx": "requirements.txt",
}

// ScopedPermissions is the replacement block for a blanket write-all grant,
// one scope per line; the generator re-indents it to the matched line.
var ScopedPermissions = []string{
	"contents: read",
	"actions: read",
	"checks: write",
}
