package models

// Rating is the derived review aggregate stored on a doctor.
type Rating struct {
	Average float64 `gorm:"default:0" json:"average" bson:"average"`
	Count   int     `gorm:"default:0" json:"count" bson:"count"`
}

// Doctor is the directory entry for a provider. Its ID is the doctor user's ID.
type Doctor struct {
	BaseModel       `bson:",inline"`
	Name            string  `gorm:"size:200" json:"name" bson:"name"`
	Specialization  string  `gorm:"size:100;index" json:"specialization" bson:"specialization"`
	ConsultationFee float64 `gorm:"not null;default:0" json:"consultationFee" bson:"consultationFee"`
	IsActive        bool    `gorm:"default:true;index" json:"isActive" bson:"isActive"`
	Rating          Rating  `gorm:"embedded;embeddedPrefix:rating_" json:"rating" bson:"rating"`
	Version         int     `gorm:"not null;default:0" json:"-" bson:"version"`
}
