package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredFilters are the ffmpeg filters the composition graphs use.
var RequiredFilters = []string{"drawtext", "overlay", "concat", "scale", "crop", "setsar", "fps", "aformat", "color", "anullsrc"}

// FilterLister returns the output of "ffmpeg -hide_banner -filters".
type FilterLister func(ctx context.Context, binary string) ([]byte, error)

func listFilters(ctx context.Context, binary string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
}

// CheckFFmpegFilters reports whether binary was built with every filter in
// required. drawtext in particular is missing from builds without libfreetype.
func CheckFFmpegFilters(ctx context.Context, binary string, required []string, lister FilterLister) Status {
	status := Status{
		Name:        "FFmpeg filters",
		Command:     binary,
		Description: "Filters used by the composition graphs",
	}
	if lister == nil {
		lister = listFilters
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := lister(checkCtx, binary)
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	available := parseFilterNames(string(out))
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// parseFilterNames extracts filter names from the -filters table, whose
// rows look like " T.C drawtext          V->V       Draw text on top of video frames.".
func parseFilterNames(listing string) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
