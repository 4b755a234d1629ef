package billing

// Platform identifies which native billing runtime produced a value.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformApple
	PlatformGoogle
)

func (p Platform) String() string {
	switch p {
	case PlatformApple:
		return "apple"
	case PlatformGoogle:
		return "google"
	default:
		return "unknown"
	}
}
