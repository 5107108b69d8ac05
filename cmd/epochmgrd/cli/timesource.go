package cli

import "time"

// wallClockTimeSource is the proposalgen.TimeSource backing live nodes: the
// host's own wall clock, in microseconds (consensustypes.Block.Timestamp's
// unit, spec §3).
type wallClockTimeSource struct{}

func (wallClockTimeSource) NowUsec() int64 { return time.Now().UnixMicro() }

