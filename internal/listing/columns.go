package listing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical column names used by the pipeline stages.
const (
	ColStoreID           = "store_id"
	ColStoreName         = "store_name"
	ColBranchName        = "branch_name"
	ColCategoryLargeCode = "category_large_code"
	ColCategoryLargeName = "category_large_name"
	ColCategoryMidCode   = "category_mid_code"
	ColCategoryMidName   = "category_mid_name"
	ColCategorySmallCode = "category_small_code"
	ColCategorySmallName = "category_small_name"
	ColIndustryCode      = "industry_code"
	ColIndustryName      = "industry_name"
	ColRegionCode        = "region_code"
	ColRegionName        = "region_name"
	ColDistrictCode      = "district_code"
	ColDistrictName      = "district_name"
	ColAdminDongCode     = "admin_dong_code"
	ColAdminDongName     = "admin_dong_name"
	ColLegalDongCode     = "legal_dong_code"
	ColLegalDongName     = "legal_dong_name"
	ColLotCode           = "lot_code"
	ColLandClassCode     = "land_class_code"
	ColLandClassName     = "land_class_name"
	ColLotMainNo         = "lot_main_no"
	ColLotSubNo          = "lot_sub_no"
	ColLotAddress        = "lot_address"
	ColRoadCode          = "road_code"
	ColRoadName          = "road_name"
	ColBuildingMainNo    = "building_main_no"
	ColBuildingSubNo     = "building_sub_no"
	ColBuildingMgmtNo    = "building_mgmt_no"
	ColBuildingName      = "building_name"
	ColRoadAddress       = "road_address"
	ColOldPostalCode     = "old_postal_code"
	ColNewPostalCode     = "new_postal_code"
	ColDongInfo          = "dong_info"
	ColFloorInfo         = "floor_info"
	ColUnitInfo          = "unit_info"
	ColLongitude         = "longitude"
	ColLatitude          = "latitude"

	// ColMarketZone is derived during merge; it never appears in a source file.
	ColMarketZone = "market_zone"
)

// Column describes one registry column.
type Column struct {
	Source      string // header as published in the registry CSV
	Name        string // canonical name
	ForceString bool   // skip type inference when writing Parquet
}

// Catalog lists every known registry column in source order.
var Catalog = []Column{
	{Source: "상가업소번호", Name: ColStoreID},
	{Source: "상호명", Name: ColStoreName},
	{Source: "지점명", Name: ColBranchName},
	{Source: "상권업종대분류코드", Name: ColCategoryLargeCode},
	{Source: "상권업종대분류명", Name: ColCategoryLargeName},
	{Source: "상권업종중분류코드", Name: ColCategoryMidCode},
	{Source: "상권업종중분류명", Name: ColCategoryMidName},
	{Source: "상권업종소분류코드", Name: ColCategorySmallCode},
	{Source: "상권업종소분류명", Name: ColCategorySmallName},
	{Source: "표준산업분류코드", Name: ColIndustryCode},
	{Source: "표준산업분류명", Name: ColIndustryName},
	{Source: "시도코드", Name: ColRegionCode},
	{Source: "시도명", Name: ColRegionName},
	{Source: "시군구코드", Name: ColDistrictCode},
	{Source: "시군구명", Name: ColDistrictName},
	{Source: "행정동코드", Name: ColAdminDongCode},
	{Source: "행정동명", Name: ColAdminDongName},
	{Source: "법정동코드", Name: ColLegalDongCode},
	{Source: "법정동명", Name: ColLegalDongName},
	{Source: "지번코드", Name: ColLotCode},
	{Source: "대지구분코드", Name: ColLandClassCode},
	{Source: "대지구분명", Name: ColLandClassName},
	{Source: "지번본번지", Name: ColLotMainNo},
	{Source: "지번부번지", Name: ColLotSubNo},
	{Source: "지번주소", Name: ColLotAddress},
	{Source: "도로명코드", Name: ColRoadCode},
	{Source: "도로명", Name: ColRoadName},
	{Source: "건물본번지", Name: ColBuildingMainNo},
	{Source: "건물부번지", Name: ColBuildingSubNo},
	{Source: "건물관리번호", Name: ColBuildingMgmtNo},
	{Source: "건물명", Name: ColBuildingName},
	{Source: "도로명주소", Name: ColRoadAddress},
	{Source: "구우편번호", Name: ColOldPostalCode},
	{Source: "신우편번호", Name: ColNewPostalCode},
	{Source: "동정보", Name: ColDongInfo},
	{Source: "층정보", Name: ColFloorInfo, ForceString: true},
	{Source: "호정보", Name: ColUnitInfo},
	{Source: "경도", Name: ColLongitude},
	{Source: "위도", Name: ColLatitude},
}

var (
	bySource = make(map[string]*Column, len(Catalog))
	byName   = make(map[string]*Column, len(Catalog))
)

func init() {
	for i := range Catalog {
		c := &Catalog[i]
		bySource[norm.NFC.String(c.Source)] = c
		byName[c.Name] = c
	}
}

// Canonical maps a source header to its canonical name. Canonical names map
// to themselves and unknown headers are returned unchanged.
func Canonical(header string) string {
	if c, ok := bySource[norm.NFC.String(header)]; ok {
		return c.Name
	}
	return header
}

// NormalizeHeader trims a raw header and resolves it through the catalog.
func NormalizeHeader(header string) string {
	return Canonical(strings.TrimSpace(header))
}

// IsForceString reports whether the column skips numeric inference.
func IsForceString(name string) bool {
	if c, ok := byName[name]; ok {
		return c.ForceString
	}
	if c, ok := bySource[norm.NFC.String(name)]; ok {
		return c.ForceString
	}
	return false
}
