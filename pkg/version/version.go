package version

// Version is the bu release. Release builds override it:
//
//	go build -ldflags "-X github.com/vanderheijden86/bu/pkg/version.Version=v1.2.3" ./cmd/bu
var Version = "v0.1.0-dev"
