package debias

import (
	"fmt"
	"math"

	"github.com/maseology/debias/dist"
)

// Variable identifies a climate variable with published debiasing
// settings.
type Variable string

const (
	Hurs      Variable = "hurs"      // daily mean near-surface relative humidity [%]
	Pr        Variable = "pr"        // daily mean precipitation flux [kg m-2 s-1]
	PrSnRatio Variable = "prsnratio" // daily mean snowfall to precipitation ratio [1]
	Psl       Variable = "psl"       // daily mean sea-level pressure [Pa]
	Rlds      Variable = "rlds"      // daily mean surface downwelling longwave radiation [W m-2]
	Rsds      Variable = "rsds"      // daily mean surface downwelling shortwave radiation [W m-2]
	SfcWind   Variable = "sfcwind"   // daily mean near-surface wind speed [m s-1]
	Tas       Variable = "tas"       // daily mean near-surface air temperature [K]
	TasRange  Variable = "tasrange"  // daily near-surface air temperature range [K]
	TasSkew   Variable = "tasskew"   // daily near-surface air temperature skew [1]
)

// DryDayThreshold is the precipitation flux under which a day counts
// as dry, 0.1 mm/day in SI units.
const DryDayThreshold = 0.1 / 86400

// ISIMIPForVariable returns the pipeline configured with the published
// ISIMIP3 settings for the variable.
func ISIMIPForVariable(v Variable) (*ISIMIP, error) {
	cfg := ISIMIP3Defaults()
	switch v {
	case Hurs:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.01
		cfg.UpperBound, cfg.UpperThreshold = 100, 99.99
		cfg.Distribution = dist.Beta{}
		cfg.TrendTransfer = TransferBounded
		cfg.NonparametricQM = true
		cfg.TrendTransferOnlyWithinThreshold = false
		cfg.AdjustFrequenciesBeyondThresholds = false
	case Pr:
		cfg.LowerBound, cfg.LowerThreshold = 0, DryDayThreshold
		cfg.Distribution = dist.Gamma{}
		cfg.TrendTransfer = TransferMixed
	case PrSnRatio:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.0001
		cfg.UpperBound, cfg.UpperThreshold = 1, 0.9999
		cfg.Distribution = dist.Beta{}
		cfg.TrendTransfer = TransferBounded
		cfg.ImputeMissingValues = true
		cfg.NonparametricQM = true
	case Psl, Rlds:
		cfg.Distribution = dist.Normal{}
		cfg.TrendTransfer = TransferAdditive
		cfg.Detrending = true
	case Rsds:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.0001
		cfg.UpperBound, cfg.UpperThreshold = 1, 0.9999
		cfg.Distribution = dist.Beta{}
		cfg.TrendTransfer = TransferBounded
		cfg.ScaleByAnnualCycleOfUpperBounds = true
		cfg.NonparametricQM = true
	case SfcWind:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.01
		cfg.Distribution = dist.Weibull{}
		cfg.TrendTransfer = TransferMixed
	case Tas:
		cfg.Distribution = dist.Normal{}
		cfg.TrendTransfer = TransferAdditive
		cfg.Detrending = true
		cfg.ReasonablePhysicalRange = &[2]float64{0, 400}
	case TasRange:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.01
		cfg.Distribution = dist.Weibull{}
		cfg.TrendTransfer = TransferMixed
	case TasSkew:
		cfg.LowerBound, cfg.LowerThreshold = 0, 0.0001
		cfg.UpperBound, cfg.UpperThreshold = 1, 0.9999
		cfg.Distribution = dist.Beta{}
		cfg.TrendTransfer = TransferBounded
		cfg.NonparametricQM = true
	default:
		return nil, fmt.Errorf("isimip: no published settings for variable %q", v)
	}
	return NewISIMIP(cfg)
}

// CDFtForVariable returns CDFt configured for the variable: SSR is
// enabled for precipitation to handle the dry-day point mass.
func CDFtForVariable(v Variable) (*CDFt, error) {
	cfg := CDFt{
		ApplyByMonth:      true,
		RunningWindowMode: true,
	}
	switch v {
	case Tas:
	case Pr:
		cfg.SSR = true
	default:
		return nil, fmt.Errorf("cdft: no published settings for variable %q", v)
	}
	return NewCDFt(cfg)
}

// QDMForVariable returns QuantileDeltaMapping configured for the
// variable.
func QDMForVariable(v Variable) (*QuantileDeltaMapping, error) {
	switch v {
	case Tas:
		return NewQuantileDeltaMapping(QuantileDeltaMapping{
			Distribution:            dist.Normal{},
			TrendPreservation:       TrendAdditive,
			RunningWindowOverYears:  true,
			RunningWindowWithinYear: true,
		})
	case Pr:
		return QDMForPrecipitation(0.05 / 86400)
	default:
		return nil, fmt.Errorf("qdm: no published settings for variable %q", v)
	}
}

// QDMForPrecipitation returns QuantileDeltaMapping with a left-censored
// gamma model: values below the censoring threshold count as dry and
// corrected values under it are set to zero.
func QDMForPrecipitation(censoringThreshold float64) (*QuantileDeltaMapping, error) {
	if !(censoringThreshold > 0) || math.IsInf(censoringThreshold, 1) {
		return nil, fmt.Errorf("qdm: censoring threshold %v must be positive and finite", censoringThreshold)
	}
	return NewQuantileDeltaMapping(QuantileDeltaMapping{
		Distribution:            dist.LeftCensoredGamma{Threshold: censoringThreshold},
		TrendPreservation:       TrendRelative,
		CensorValuesToZero:      true,
		CensoringThreshold:      censoringThreshold,
		RunningWindowOverYears:  true,
		RunningWindowWithinYear: true,
	})
}
