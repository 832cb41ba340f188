package cli

import (
	"log/slog"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/accelerator/fake"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/platform"
	linuxplatform "github.com/nordichpc/sonar/pkg/platform/linux"
)

// sonarVersion is stamped on every envelope's meta.version field and on the
// optional metrics server's /health response.
const sonarVersion = "1.0.0"

// newPlatform opens the host's platform implementation. Linux is the only
// implementation this module carries; a future port adds a build-tag
// alternative here, the way pkg/accelerator's vendor variants are selected.
func newPlatform() (platform.Platform, error) {
	return linuxplatform.New()
}

// newAccelerators polls every compiled-in vendor variant plus the always-safe
// fake fallback, keeping only those reporting at least one device.
func newAccelerators() []accelerator.Accelerator {
	factory := accelerator.DefaultFactory()
	factory.RegisterVariant(func() (accelerator.Accelerator, error) { return fake.New(), nil })

	accels, errs := factory.Available()
	for _, err := range errs {
		slog.Warn("accelerator variant unavailable", "error", err)
	}
	return accels
}

// metaFor builds the envelope.Meta stamped on every probe's output.
func metaFor(token string) envelope.Meta {
	return envelope.Meta{
		Producer: "sonar",
		Version:  sonarVersion,
		Format:   "newfmt/1",
		Token:    token,
	}
}
