package preflight

type Plan struct {
	DirectoryAccessible bool
	DirectoryWritable   bool

	// Global Flags
	DryRun bool
}
