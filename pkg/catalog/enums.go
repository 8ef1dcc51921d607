// Package catalog defines the cross-vendor inventory schema: entity
// records, enums, nested JSON value types, table metadata, validators,
// static lookups, and the adapter surface every vendor integration
// implements.
package catalog

// Status marks whether a row was present in the most recent pull.
// INACTIVE rows are tombstones; they are never deleted.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Allocation is the purchasing model of a server instance.
type Allocation string

const (
	AllocationOnDemand Allocation = "ONDEMAND"
	AllocationReserved Allocation = "RESERVED"
	AllocationSpot     Allocation = "SPOT"
)

// CPUAllocation describes how vCPUs are carved out of physical cores.
type CPUAllocation string

const (
	CPUAllocationShared    CPUAllocation = "SHARED"
	CPUAllocationBurstable CPUAllocation = "BURSTABLE"
	CPUAllocationDedicated CPUAllocation = "DEDICATED"
)

// CPUArchitecture is the instruction set architecture of a server.
type CPUArchitecture string

const (
	ArchARM64    CPUArchitecture = "ARM64"
	ArchARM64Mac CPUArchitecture = "ARM64_MAC"
	ArchI386     CPUArchitecture = "I386"
	ArchX8664    CPUArchitecture = "X86_64"
	ArchX8664Mac CPUArchitecture = "X86_64_MAC"
)

// StorageType classifies a block-storage offering or an attached disk.
type StorageType string

const (
	StorageHDD     StorageType = "HDD"
	StorageSSD     StorageType = "SSD"
	StorageNVMeSSD StorageType = "NVME_SSD"
	StorageNetwork StorageType = "NETWORK"
)

// TrafficDirection distinguishes ingress from egress pricing.
type TrafficDirection string

const (
	TrafficIn  TrafficDirection = "IN"
	TrafficOut TrafficDirection = "OUT"
)

// PriceUnit is the billing unit a price refers to.
type PriceUnit string

const (
	UnitYear    PriceUnit = "YEAR"
	UnitMonth   PriceUnit = "MONTH"
	UnitHour    PriceUnit = "HOUR"
	UnitGiB     PriceUnit = "GIB"
	UnitGB      PriceUnit = "GB"
	UnitGBMonth PriceUnit = "GB_MONTH"
)

// DDRGeneration is the memory module generation of a server.
type DDRGeneration string

const (
	DDR3 DDRGeneration = "DDR3"
	DDR4 DDRGeneration = "DDR4"
	DDR5 DDRGeneration = "DDR5"
)
