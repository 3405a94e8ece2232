package models

// SystemSettings is the single-row table of institution-wide defaults applied
// when new courses are created. Threshold ordering is not validated here;
// classification evaluates level3 first regardless of what was entered.
type SystemSettings struct {
	DefaultCOTarget          int `db:"default_co_target" json:"default_co_target"`
	DefaultAttainmentLevel3  int `db:"default_attainment_level3" json:"default_attainment_level3"`
	DefaultAttainmentLevel2  int `db:"default_attainment_level2" json:"default_attainment_level2"`
	DefaultAttainmentLevel1  int `db:"default_attainment_level1" json:"default_attainment_level1"`
	DefaultWeightDirect      int `db:"default_weight_direct" json:"default_weight_direct"`
	DefaultWeightIndirect    int `db:"default_weight_indirect" json:"default_weight_indirect"`
}
