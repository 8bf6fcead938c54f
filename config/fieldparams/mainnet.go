package field_params

const (
	RootLength = 32 // RootLength defines the byte length of a Merkle root.
)
