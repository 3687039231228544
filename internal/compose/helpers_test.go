package compose

import "storyreel/internal/config"

func testCaptionsConfig() config.Captions {
	return config.Default().Captions
}
