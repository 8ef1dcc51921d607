package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a record against its schema: required fields, enum
// membership, numeric ranges, plus the cross-field rules the tag syntax
// cannot express (tier continuity, GPU memory totals).
func Validate(r Record) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%s row failed validation: %w", r.Table().Name, err)
	}
	switch rec := r.(type) {
	case *Server:
		return validateServer(rec)
	case *ServerPrice:
		return validateTiered(r, rec.PriceTiered)
	case *StoragePrice:
		return validateTiered(r, rec.PriceTiered)
	case *TrafficPrice:
		return validateTiered(r, rec.PriceTiered)
	case *Ipv4Price:
		return validateTiered(r, rec.PriceTiered)
	}
	return nil
}

func validateTiered(r Record, tiers []PriceTier) error {
	if err := ValidateTiers(tiers); err != nil {
		return fmt.Errorf("%s row has malformed price tiers: %w", r.Table().Name, err)
	}
	return nil
}

func validateServer(s *Server) error {
	if len(s.Gpus) == 0 {
		return nil
	}
	var total int64
	for _, g := range s.Gpus {
		total += g.MemoryMiB
	}
	if s.GpuMemoryTotal != nil && *s.GpuMemoryTotal != total {
		return fmt.Errorf("server %s/%s: gpu_memory_total %d does not match sum of per-GPU memory %d",
			s.VendorID, s.ServerID, *s.GpuMemoryTotal, total)
	}
	return nil
}

// ValidateAll validates a pull result, failing fast on the first bad row.
func ValidateAll[T Record](rows []T) error {
	for _, r := range rows {
		if err := Validate(r); err != nil {
			return err
		}
	}
	return nil
}
