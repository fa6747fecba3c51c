package gunzip

type Plan struct {
	Decoder      Decoder
	Overwrite    OverwriteBehavior
	DeleteSource bool

	// Global Flags
	DryRun   bool
	FailFast bool
	Metrics  bool
}
