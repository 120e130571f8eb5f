// Package checkpoint saves and resumes follow-network harvest progress.
//
// A checkpoint records which seeds have been fully harvested and how many
// edges were appended to the edge log. A resumed run skips completed seeds
// and retries failed ones; edges of completed seeds are already in the log.
//
// Files live in harvest.checkpoint_dir, or in the per-user data directory
// when that is empty:
//   - Linux: $XDG_DATA_HOME/emmakit/checkpoints/ (~/.local/share by default)
//   - macOS: ~/Library/Application Support/emmakit/checkpoints/
//   - Windows: %APPDATA%/emmakit/checkpoints/
//
// Saves write a temporary file and rename it over the old one.
package checkpoint
