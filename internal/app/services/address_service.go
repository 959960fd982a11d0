package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// AddressService serves the cascading address dropdowns
type AddressService struct {
	repo repositories.IAddressRepository
}

// NewAddressService creates a new AddressService
func NewAddressService(repo repositories.IAddressRepository) *AddressService {
	return &AddressService{repo: repo}
}

func (s *AddressService) Regions(ctx context.Context) ([]models.Region, error) {
	return s.repo.ListRegions(ctx)
}

func (s *AddressService) Provinces(ctx context.Context, regionCode string) ([]models.Province, error) {
	return s.repo.ListProvinces(ctx, regionCode)
}

func (s *AddressService) Cities(ctx context.Context, provinceCode string) ([]models.City, error) {
	return s.repo.ListCities(ctx, provinceCode)
}

func (s *AddressService) Barangays(ctx context.Context, cityCode string) ([]models.Barangay, error) {
	return s.repo.ListBarangays(ctx, cityCode)
}

// Validate checks that every code given belongs to its parent. A child code
// requires its parent code.
func (s *AddressService) Validate(ctx context.Context, a models.Address) error {
	region, province, city, barangay := value(a.RegionCode), value(a.ProvinceCode), value(a.CityCode), value(a.BarangayCode)

	switch {
	case barangay != "" && city == "",
		city != "" && province == "",
		province != "" && region == "":
		return invalidAddress("each address level requires the level above it")
	}

	if region != "" {
		ok, err := s.repo.RegionExists(ctx, region)
		if err != nil {
			return err
		}
		if !ok {
			return invalidAddress("unknown region")
		}
	}
	if province != "" {
		p, err := s.repo.GetProvince(ctx, province)
		if err != nil {
			return lookupError(err, "unknown province")
		}
		if p.RegionCode != region {
			return invalidAddress("province does not belong to the region")
		}
	}
	if city != "" {
		c, err := s.repo.GetCity(ctx, city)
		if err != nil {
			return lookupError(err, "unknown city")
		}
		if c.ProvinceCode != province {
			return invalidAddress("city does not belong to the province")
		}
	}
	if barangay != "" {
		b, err := s.repo.GetBarangay(ctx, barangay)
		if err != nil {
			return lookupError(err, "unknown barangay")
		}
		if b.CityCode != city {
			return invalidAddress("barangay does not belong to the city")
		}
	}
	return nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func invalidAddress(msg string) error {
	return &apperrors.CustomError{Err: apperrors.ErrInvalidAddress, Message: msg}
}

func lookupError(err error, msg string) error {
	if errors.Is(err, apperrors.ErrInvalidAddress) {
		return invalidAddress(msg)
	}
	return err
}
