// Package models defines the persisted row shapes of the job-market
// warehouse.
package models

import "time"

// JobRecord is one standardized job posting as persisted. The natural
// (source-assigned) posting ID is the primary key; everything else is
// nullable because the raw boards omit fields freely.
type JobRecord struct {
	ID                 string     `gorm:"column:id;type:varchar(100);primaryKey"`
	Intitule           *string    `gorm:"column:intitule;type:varchar(255)"`
	DescriptionClean   *string    `gorm:"column:description_clean;type:text"`
	EntrepriseClean    *string    `gorm:"column:entreprise_clean;type:varchar(255)"`
	LieuTravail        *string    `gorm:"column:lieu_travail;type:varchar(255)"`
	TypeContrat        *string    `gorm:"column:type_contrat;type:varchar(50)"`
	ContractTypeStd    *string    `gorm:"column:contract_type_std;type:varchar(50)"`
	ExperienceLevel    *string    `gorm:"column:experience_level;type:varchar(20)"`
	MinSalary          *float64   `gorm:"column:min_salary"`
	MaxSalary          *float64   `gorm:"column:max_salary"`
	SalaryPeriodicity  *string    `gorm:"column:salary_periodicity;type:varchar(20)"`
	Currency           *string    `gorm:"column:currency;type:varchar(5)"`
	DateCreation       *time.Time `gorm:"column:date_creation"`
	DateActualisation  *time.Time `gorm:"column:date_actualisation"`
	KeywordCount       *int       `gorm:"column:keyword_count"`
	HasPython          *bool      `gorm:"column:has_python"`
	HasJava            *bool      `gorm:"column:has_java"`
	HasJavascript      *bool      `gorm:"column:has_javascript"`
	HasSQL             *bool      `gorm:"column:has_sql"`
	HasAWS             *bool      `gorm:"column:has_aws"`
	HasMachineLearning *bool      `gorm:"column:has_machine_learning"`
	ETLTimestamp       *time.Time `gorm:"column:etl_timestamp"`
	Source             string     `gorm:"column:source;type:varchar(50);default:'FRANCE_TRAVAIL'"`
}

// TableName is the default table; the loader overrides it per source
// through the session-scoped table name.
func (JobRecord) TableName() string {
	return "france_travail_jobs"
}
