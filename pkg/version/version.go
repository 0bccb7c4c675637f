package version

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/jingyuanliang/echosvc/pkg/version.Version=$(VERSION)"
var Version = "UNKNOWN"
