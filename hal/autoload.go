package hal

// Autoload is the opaque cache state returned by InitMMU and consumed by
// ResumeMMU. It is single-use and bound to the HAL that issued it; pass it
// by pointer and never copy it.
type Autoload struct {
	_     noCopy
	owner *HAL
	value uint32
	spent bool
}

// Spent reports whether the token has been consumed by ResumeMMU.
func (t *Autoload) Spent() bool {
	return t.spent
}

// noCopy makes go vet's copylocks check flag copies of the containing struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
