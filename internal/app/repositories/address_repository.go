package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/dberrors"
)

// AddressRepository reads the region > province > city > barangay hierarchy
type AddressRepository struct {
	baseRepository
}

var _ IAddressRepository = (*AddressRepository)(nil)

// NewAddressRepository creates a new AddressRepository
func NewAddressRepository(database *db.PostgresDB) *AddressRepository {
	return &AddressRepository{baseRepository: newBaseRepository(database)}
}

// ListRegions returns all regions ordered by name
func (r *AddressRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT code, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing regions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Region, error) {
		var v models.Region
		err := row.Scan(&v.Code, &v.Name)
		return v, err
	})
}

// ListProvinces returns the provinces of a region
func (r *AddressRepository) ListProvinces(ctx context.Context, regionCode string) ([]models.Province, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT code, region_code, name FROM provinces WHERE region_code = $1 ORDER BY name`, regionCode)
	if err != nil {
		return nil, fmt.Errorf("error listing provinces: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Province, error) {
		var v models.Province
		err := row.Scan(&v.Code, &v.RegionCode, &v.Name)
		return v, err
	})
}

// ListCities returns the cities of a province
func (r *AddressRepository) ListCities(ctx context.Context, provinceCode string) ([]models.City, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT code, province_code, name FROM cities WHERE province_code = $1 ORDER BY name`, provinceCode)
	if err != nil {
		return nil, fmt.Errorf("error listing cities: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.City, error) {
		var v models.City
		err := row.Scan(&v.Code, &v.ProvinceCode, &v.Name)
		return v, err
	})
}

// ListBarangays returns the barangays of a city
func (r *AddressRepository) ListBarangays(ctx context.Context, cityCode string) ([]models.Barangay, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT code, city_code, name FROM barangays WHERE city_code = $1 ORDER BY name`, cityCode)
	if err != nil {
		return nil, fmt.Errorf("error listing barangays: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Barangay, error) {
		var v models.Barangay
		err := row.Scan(&v.Code, &v.CityCode, &v.Name)
		return v, err
	})
}

// RegionExists reports whether a region code is known
func (r *AddressRepository) RegionExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM regions WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking region: %w", err)
	}
	return exists, nil
}

// GetProvince fetches a province by code
func (r *AddressRepository) GetProvince(ctx context.Context, code string) (*models.Province, error) {
	v := &models.Province{}
	err := r.conn(ctx).QueryRow(ctx, `SELECT code, region_code, name FROM provinces WHERE code = $1`, code).
		Scan(&v.Code, &v.RegionCode, &v.Name)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrInvalidAddress
		}
		return nil, fmt.Errorf("error retrieving province: %w", err)
	}
	return v, nil
}

// GetCity fetches a city by code
func (r *AddressRepository) GetCity(ctx context.Context, code string) (*models.City, error) {
	v := &models.City{}
	err := r.conn(ctx).QueryRow(ctx, `SELECT code, province_code, name FROM cities WHERE code = $1`, code).
		Scan(&v.Code, &v.ProvinceCode, &v.Name)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrInvalidAddress
		}
		return nil, fmt.Errorf("error retrieving city: %w", err)
	}
	return v, nil
}

// GetBarangay fetches a barangay by code
func (r *AddressRepository) GetBarangay(ctx context.Context, code string) (*models.Barangay, error) {
	v := &models.Barangay{}
	err := r.conn(ctx).QueryRow(ctx, `SELECT code, city_code, name FROM barangays WHERE code = $1`, code).
		Scan(&v.Code, &v.CityCode, &v.Name)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrInvalidAddress
		}
		return nil, fmt.Errorf("error retrieving barangay: %w", err)
	}
	return v, nil
}
