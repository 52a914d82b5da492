// Package domain holds the value types shared by every stage of the WEAP
// data preparation pipeline.
//
// # Tables
//
// Two table shapes are used:
//
//	WardTable  ward identifier -> named numeric fields. Used for census,
//	           population and demand data. Merges are explicit outer joins
//	           that declare a FillPolicy (KeepMissing, FillZero,
//	           ErrorOnMissing); column names may not collide.
//	Table      rectangular export table: an index column (Date, Year,
//	           Ward, Service area) followed by value columns. NaN marks a
//	           missing cell and is written as an empty field.
//
// A Series is a date-indexed Table builder: the full daily range between
// the model calibration start and end dates is laid down first and
// observations are left-joined onto it.
//
// # Dates
//
// Source spreadsheets mix date encodings. DateNormalizer accepts, in
// priority order:
//
//	ISO 8601      2021-03-04, 2021-03-04T00:00:00, RFC 3339
//	DD/Mon/YYYY   04/Mar/2021
//	DD/MM/YYYY    04/03/2021
//	MM/DD/YYYY    03/24/2021 (only when day-first parsing fails)
//	Excel serial  44259
//
// Rows whose date matches none of these are skipped and counted.
//
// # Errors
//
//	ParameterError     configuration outside its domain (ErrInvalidParameter)
//	NoMatchError       no requested sheet/station/variable exists (ErrNoMatch)
//	ColumnFormatError  missing column, bad cell or non-year header (ErrInvalidColumnFormat)
//	DomainError        zero denominator or insufficient data (ErrDomain)
package domain
