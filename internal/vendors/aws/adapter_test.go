package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

func TestInstanceTypeToServer(t *testing.T) {
	it := ec2types.InstanceTypeInfo{
		InstanceType: ec2types.InstanceType("g5.xlarge"),
		VCpuInfo: &ec2types.VCpuInfo{
			DefaultVCpus: aws.Int32(4),
			DefaultCores: aws.Int32(2),
		},
		MemoryInfo: &ec2types.MemoryInfo{SizeInMiB: aws.Int64(16384)},
		ProcessorInfo: &ec2types.ProcessorInfo{
			SustainedClockSpeedInGhz: aws.Float64(3.3),
			SupportedArchitectures:   []ec2types.ArchitectureType{ec2types.ArchitectureTypeX8664},
		},
		GpuInfo: &ec2types.GpuInfo{
			Gpus: []ec2types.GpuDeviceInfo{{
				Count:        aws.Int32(1),
				Manufacturer: aws.String("NVIDIA"),
				Name:         aws.String("A10G"),
				MemoryInfo:   &ec2types.GpuDeviceMemoryInfo{SizeInMiB: aws.Int32(24576)},
			}},
			TotalGpuMemoryInMiB: aws.Int32(24576),
		},
	}

	srv := instanceTypeToServer(it)
	if srv.ServerID != "g5.xlarge" || *srv.Family != "g5" {
		t.Errorf("identity: %q family %v", srv.ServerID, srv.Family)
	}
	if srv.VCpus != 4 || *srv.CPUCores != 2 || srv.MemoryAmount != 16384 {
		t.Errorf("cpu/memory: vcpus=%d cores=%v memory=%d", srv.VCpus, srv.CPUCores, srv.MemoryAmount)
	}
	if srv.CPUArchitecture != catalog.ArchX8664 {
		t.Errorf("architecture = %s", srv.CPUArchitecture)
	}
	if srv.GpuCount != 1 || len(srv.Gpus) != 1 {
		t.Fatalf("gpus: count=%v list=%d", srv.GpuCount, len(srv.Gpus))
	}
	if srv.Gpus[0].MemoryMiB != 24576 {
		t.Errorf("gpu memory = %d MiB", srv.Gpus[0].MemoryMiB)
	}
	if *srv.GpuMemoryMin != 24576 || *srv.GpuMemoryTotal != 24576 {
		t.Errorf("gpu memory min/total = %v/%v", *srv.GpuMemoryMin, *srv.GpuMemoryTotal)
	}
	if *srv.GpuManufacturer != "NVIDIA" || *srv.GpuModel != "A10G" {
		t.Errorf("gpu identity = %v %v", *srv.GpuManufacturer, *srv.GpuModel)
	}
}

func TestInstanceTypeToServerBurstable(t *testing.T) {
	it := ec2types.InstanceTypeInfo{
		InstanceType:                  ec2types.InstanceType("t3.micro"),
		VCpuInfo:                      &ec2types.VCpuInfo{DefaultVCpus: aws.Int32(2)},
		MemoryInfo:                    &ec2types.MemoryInfo{SizeInMiB: aws.Int64(1024)},
		BurstablePerformanceSupported: aws.Bool(true),
	}
	srv := instanceTypeToServer(it)
	if srv.CPUAllocation != catalog.CPUAllocationBurstable {
		t.Errorf("allocation = %s", srv.CPUAllocation)
	}
	if srv.GpuCount != 0 || srv.GpuMemoryTotal != nil {
		t.Errorf("gpu fields set on a gpu-less type: %+v", srv)
	}
}
