package domain

import (
	"github.com/hswtrack/compliance-backend/internal/domain/identity"
	"github.com/hswtrack/compliance-backend/internal/domain/importing"
	"github.com/hswtrack/compliance-backend/internal/domain/training"
)

type Person = identity.Person
type PersonAlias = identity.PersonAlias
type Department = identity.Department
type Account = identity.Account
type PersonType = identity.PersonType
type AccountRole = identity.AccountRole

const (
	PersonTypeStaff   = identity.PersonTypeStaff
	PersonTypeStudent = identity.PersonTypeStudent
	PersonTypeOther   = identity.PersonTypeOther

	AccountRoleAdmin  = identity.AccountRoleAdmin
	AccountRoleViewer = identity.AccountRoleViewer
)

type ImportBatch = importing.ImportBatch
type ImportRow = importing.ImportRow
type BatchStatus = importing.BatchStatus
type RowStatus = importing.RowStatus

const (
	BatchStatusPending    = importing.BatchStatusPending
	BatchStatusProcessing = importing.BatchStatusProcessing
	BatchStatusCompleted  = importing.BatchStatusCompleted
	BatchStatusFailed     = importing.BatchStatusFailed
	BatchStatusPartial    = importing.BatchStatusPartial

	RowStatusPending   = importing.RowStatusPending
	RowStatusAccepted  = importing.RowStatusAccepted
	RowStatusSkipped   = importing.RowStatusSkipped
	RowStatusError     = importing.RowStatusError
	RowStatusProcessed = importing.RowStatusProcessed
)

type Training = training.Training
type TrainingFieldDef = training.TrainingFieldDef
type TrainingRecord = training.TrainingRecord
type TrainingRecordFieldValue = training.TrainingRecordFieldValue
type TypedValue = training.TypedValue
type Category = training.Category
type PersonCategory = training.PersonCategory
type Group = training.Group
type GroupMember = training.GroupMember
type ExpiryMode = training.ExpiryMode
type FieldDataType = training.FieldDataType
type RecordStatus = training.RecordStatus
type RecordSource = training.RecordSource
type CategoryScope = training.CategoryScope

const (
	ExpiryModeNone      = training.ExpiryModeNone
	ExpiryModeFixedDays = training.ExpiryModeFixedDays
	ExpiryModePerRecord = training.ExpiryModePerRecord

	FieldTypeText    = training.FieldTypeText
	FieldTypeNumber  = training.FieldTypeNumber
	FieldTypeDate    = training.FieldTypeDate
	FieldTypeBoolean = training.FieldTypeBoolean
	FieldTypeSelect  = training.FieldTypeSelect
	FieldTypeJSON    = training.FieldTypeJSON

	RecordStatusPending = training.RecordStatusPending
	RecordStatusValid   = training.RecordStatusValid
	RecordStatusExpired = training.RecordStatusExpired
	RecordStatusRevoked = training.RecordStatusRevoked

	RecordSourceLMS        = training.RecordSourceLMS
	RecordSourceExternal   = training.RecordSourceExternal
	RecordSourceBulkUpload = training.RecordSourceBulkUpload
	RecordSourceManual     = training.RecordSourceManual

	CategoryScopeTraining = training.CategoryScopeTraining
	CategoryScopeUser     = training.CategoryScopeUser
	CategoryScopeBoth     = training.CategoryScopeBoth
)

var (
	ComputeExpiry = training.ComputeExpiry
	NewFieldValue = training.NewFieldValue

	TextValue    = training.TextValue
	NumberValue  = training.NumberValue
	DateValue    = training.DateValue
	BooleanValue = training.BooleanValue
	SelectValue  = training.SelectValue
	JSONValue    = training.JSONValue
)
