// Package types defines the Warehouse and Table interfaces, the entity types
// of the KPI star schema, the closed enumerations that drive classification,
// and the standard errors shared by every insighthub package.
package types
