package billing

import "fmt"

// ErrorKind is the canonical failure taxonomy. Every native-originated
// failure is translated into exactly one kind before it leaves this module.
type ErrorKind uint8

const (
	ErrorUnknown ErrorKind = iota
	ErrorUserCancelled
	ErrorNetwork
	ErrorServiceUnavailable
	ErrorProductNotAvailable
	ErrorAlreadyOwned
	ErrorNotPrepared
	ErrorInvalidConfiguration
	ErrorVerificationFailed
	ErrorDeveloper
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorUserCancelled:
		return "user_cancelled"
	case ErrorNetwork:
		return "network_error"
	case ErrorServiceUnavailable:
		return "service_unavailable"
	case ErrorProductNotAvailable:
		return "product_not_available"
	case ErrorAlreadyOwned:
		return "already_owned"
	case ErrorNotPrepared:
		return "not_prepared"
	case ErrorInvalidConfiguration:
		return "invalid_configuration"
	case ErrorVerificationFailed:
		return "verification_failed"
	case ErrorDeveloper:
		return "developer_error"
	default:
		return "unknown"
	}
}

// Error carries the canonical kind alongside the untranslated native code and
// message, so callers never lose platform detail needed for diagnostics.
type Error struct {
	Kind     ErrorKind
	Code     int
	Platform Platform
	Message  string
}

func (e *Error) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("%s: %s code %d", e.Kind, e.Platform, e.Code)
	}
	return fmt.Sprintf("%s: %s code %d: %s", e.Kind, e.Platform, e.Code, e.Message)
}

// NewError translates a native code and wraps it with its original message.
func NewError(code int, platform Platform, message string) *Error {
	return &Error{
		Kind:     Translate(code, platform),
		Code:     code,
		Platform: platform,
		Message:  message,
	}
}

// NewKindError builds an Error for failures that originate inside this module
// rather than from a native code.
func NewKindError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Google Play Billing response codes.
const (
	googleCodeServiceTimeout      = -3
	googleCodeFeatureUnsupported  = -2
	googleCodeServiceDisconnected = -1
	googleCodeOK                  = 0
	googleCodeUserCanceled        = 1
	googleCodeServiceUnavailable  = 2
	googleCodeBillingUnavailable  = 3
	googleCodeItemUnavailable     = 4
	googleCodeDeveloperError      = 5
	googleCodeError               = 6
	googleCodeItemAlreadyOwned    = 7
	googleCodeItemNotOwned        = 8
	googleCodeNetworkError        = 12
)

// StoreKit SKError codes.
const (
	appleCodeUnknown               = 0
	appleCodeClientInvalid         = 1
	appleCodePaymentCancelled      = 2
	appleCodePaymentInvalid        = 3
	appleCodePaymentNotAllowed     = 4
	appleCodeProductNotAvailable   = 5
	appleCodeCloudPermissionDenied = 6
	appleCodeCloudConnectionFailed = 7
	appleCodeCloudServiceRevoked   = 8
)

var googleErrorKinds = map[int]ErrorKind{
	googleCodeServiceTimeout:      ErrorServiceUnavailable,
	googleCodeFeatureUnsupported:  ErrorDeveloper,
	googleCodeServiceDisconnected: ErrorServiceUnavailable,
	googleCodeUserCanceled:        ErrorUserCancelled,
	googleCodeServiceUnavailable:  ErrorServiceUnavailable,
	googleCodeBillingUnavailable:  ErrorServiceUnavailable,
	googleCodeItemUnavailable:     ErrorProductNotAvailable,
	googleCodeDeveloperError:      ErrorDeveloper,
	googleCodeError:               ErrorUnknown,
	googleCodeItemAlreadyOwned:    ErrorAlreadyOwned,
	googleCodeItemNotOwned:        ErrorDeveloper,
	googleCodeNetworkError:        ErrorNetwork,
}

var appleErrorKinds = map[int]ErrorKind{
	appleCodeUnknown:               ErrorUnknown,
	appleCodeClientInvalid:         ErrorDeveloper,
	appleCodePaymentCancelled:      ErrorUserCancelled,
	appleCodePaymentInvalid:        ErrorDeveloper,
	appleCodePaymentNotAllowed:     ErrorServiceUnavailable,
	appleCodeProductNotAvailable:   ErrorProductNotAvailable,
	appleCodeCloudPermissionDenied: ErrorServiceUnavailable,
	appleCodeCloudConnectionFailed: ErrorNetwork,
	appleCodeCloudServiceRevoked:   ErrorServiceUnavailable,
}

// Translate maps a native error code to its canonical kind. It is total:
// unmapped codes and platforms fall back to ErrorUnknown.
func Translate(code int, platform Platform) ErrorKind {
	var kinds map[int]ErrorKind
	switch platform {
	case PlatformGoogle:
		kinds = googleErrorKinds
	case PlatformApple:
		kinds = appleErrorKinds
	default:
		return ErrorUnknown
	}

	kind, ok := kinds[code]
	if !ok {
		return ErrorUnknown
	}
	return kind
}
