package score

import "github.com/dudk/nfplayer/instant"

// Node kinds known to the renderer.
const (
	KindFile        = "com.nativeformat.plugin.file.file"
	KindGain        = "com.nativeformat.plugin.waa.gain"
	KindLoop        = "com.nativeformat.plugin.time.loop"
	KindStretch     = "com.nativeformat.plugin.time.stretch"
	KindDestination = "com.nativeformat.plugin.destination"
)

// Param names.
const (
	ParamGain         = "gain"
	ParamStretch      = "stretch"
	ParamPitchRatio   = "pitchRatio"
	ParamFormantRatio = "formantRatio"
)

// Config keys. Times are in nanoseconds.
const (
	ConfigFile      = "file"
	ConfigWhen      = "when"
	ConfigDuration  = "duration"
	ConfigOffset    = "offset"
	ConfigLoopCount = "loopCount"
)

// InfiniteLoop is a loop count of endless loop.
const InfiniteLoop = -1

// NewFileNode returns a file node playing uri content starting at offset
// within the window [when, when+duration).
func NewFileNode(uri string, when, duration, offset instant.Instant) Node {
	return Node{
		ID:   NewID(),
		Kind: KindFile,
		Config: map[string]interface{}{
			ConfigFile:     uri,
			ConfigWhen:     when.Nanos(),
			ConfigDuration: duration.Nanos(),
			ConfigOffset:   offset.Nanos(),
		},
	}
}

// NewGainNode returns a gain node with initial automation.
func NewGainNode(gain ...Command) Node {
	return Node{
		ID:   NewID(),
		Kind: KindGain,
		Params: map[string][]Command{
			ParamGain: append([]Command{}, gain...),
		},
	}
}

// NewLoopNode returns a loop node. Use InfiniteLoop count for endless loop.
func NewLoopNode(when, duration instant.Instant, loopCount int) Node {
	return Node{
		ID:   NewID(),
		Kind: KindLoop,
		Config: map[string]interface{}{
			ConfigWhen:      when.Nanos(),
			ConfigDuration:  duration.Nanos(),
			ConfigLoopCount: loopCount,
		},
	}
}

// NewStretchNode returns a stretch node with initial stretch automation.
func NewStretchNode(stretch ...Command) Node {
	return Node{
		ID:   NewID(),
		Kind: KindStretch,
		Params: map[string][]Command{
			ParamStretch:      append([]Command{}, stretch...),
			ParamPitchRatio:   {},
			ParamFormantRatio: {},
		},
	}
}
