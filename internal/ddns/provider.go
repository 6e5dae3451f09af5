package ddns

import "context"

// AddressSource determines the caller's current public IP address.
type AddressSource interface {
	// GetIP returns the address as text. Failures wrap ErrAddressUnavailable.
	GetIP(ctx context.Context) (string, error)
}

// Service keeps one remote DNS record pointed at a target address.
type Service interface {
	// Update makes the published address equal ip. It reports true when the
	// record already matched or was updated successfully. Failures wrap
	// ErrServiceUpdateFailed.
	Update(ctx context.Context, ip string) (bool, error)
}
