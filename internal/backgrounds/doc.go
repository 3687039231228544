// Package backgrounds maintains the background clip library: folders of short
// clips under paths.background_dir that render jobs draw from. Long source
// videos are downloaded with yt-dlp and cut into fixed-length clips.
package backgrounds
