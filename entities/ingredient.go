package entities

type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:256;not null;uniqueIndex:idx_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_name_unit" json:"measurement_unit"`

	Timestamp
}
