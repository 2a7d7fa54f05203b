package host

import (
	"context"
	"errors"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
)

// VerifyLayout checks that the host's vector types match the C layout of
// euler_vector and polar_vector.
func VerifyLayout() error {
	for _, l := range []entities.TypeLayout{entities.EulerLayout(), entities.PolarLayout()} {
		if reason := l.Check(); reason != "" {
			return &ierrors.LayoutError{Type: l.Name, Reason: reason}
		}
	}
	return nil
}

// CheckABI compares the library's abi_version with the host's. Libraries
// that do not export abi_version are accepted and reported as version 0.
func CheckABI(ctx context.Context, lib ports.Library) (uint32, error) {
	got, err := lib.ABIVersion(ctx)
	if err != nil {
		var se *ierrors.SymbolError
		if errors.As(err, &se) {
			return 0, nil
		}
		return 0, err
	}
	if got != entities.ABIVersion {
		return got, &ierrors.ABIVersionError{Want: entities.ABIVersion, Got: got}
	}
	return got, nil
}
