package scoring

import (
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

func testChurnConfig() config.ChurnConfig {
	return config.ChurnConfig{
		WeightMissed:        0.25,
		WeightInactivity:    0.30,
		WeightBalance:       0.20,
		WeightCompliance:    0.15,
		WeightCommunication: 0.10,
		InactivityDays:      180,
		ReportCutoff:        0.3,
	}
}

func testLTVConfig() config.LTVConfig {
	return config.LTVConfig{AcquisitionCost: 150, ProjectionMonths: 60, ActiveDays: 180}
}

func testROIConfig() config.ROIConfig {
	return config.ROIConfig{
		LaborCostPerHour:     50,
		EquipmentCostPerHour: 25,
		MaterialCostRatio:    0.20,
		LowPerformerROI:      20,
	}
}
