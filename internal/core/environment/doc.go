// Package environment resolves a deployment environment token into an
// immutable DeploymentConfig.
//
// This package is part of the functional core: it performs no I/O. The
// existence of the resolved files is checked later by the preflight stage,
// which may substitute the default compose file.
//
// # Policy
//
//	environment    dockerfile                     compose file                    build args
//	production     Settings.ProductionDockerfile  Settings.ProductionComposeFile  --no-cache
//	anything else  Settings.Dockerfile            Settings.ComposeFile            (none)
//
// Tokens are not validated against a closed set. Any value other than
// "production" resolves to the development policy.
package environment
