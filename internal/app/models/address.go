package models

// Region is the top level of the address hierarchy
type Region struct {
	Code string `json:"code" db:"code" example:"04"`
	Name string `json:"name" db:"name" example:"CALABARZON"`
}

// Province belongs to a region
type Province struct {
	Code       string `json:"code" db:"code" example:"0421"`
	RegionCode string `json:"regionCode" db:"region_code" example:"04"`
	Name       string `json:"name" db:"name" example:"Cavite"`
}

// City belongs to a province
type City struct {
	Code         string `json:"code" db:"code" example:"042103"`
	ProvinceCode string `json:"provinceCode" db:"province_code" example:"0421"`
	Name         string `json:"name" db:"name" example:"Bacoor"`
}

// Barangay belongs to a city
type Barangay struct {
	Code     string `json:"code" db:"code" example:"042103001"`
	CityCode string `json:"cityCode" db:"city_code" example:"042103"`
	Name     string `json:"name" db:"name" example:"Alima"`
}

// Address is the set of cascading address codes on a student profile
type Address struct {
	Street       *string `json:"street,omitempty"`
	RegionCode   *string `json:"regionCode,omitempty"`
	ProvinceCode *string `json:"provinceCode,omitempty"`
	CityCode     *string `json:"cityCode,omitempty"`
	BarangayCode *string `json:"barangayCode,omitempty"`
}
