package marketdata

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// BarSize is the interval covered by a single bar, e.g. "1 hour".
type BarSize string

const (
	BarSizeOneSecond      BarSize = "1 secs"
	BarSizeFiveSeconds    BarSize = "5 secs"
	BarSizeTenSeconds     BarSize = "10 secs"
	BarSizeFifteenSeconds BarSize = "15 secs"
	BarSizeThirtySeconds  BarSize = "30 secs"
	BarSizeOneMinute      BarSize = "1 min"
	BarSizeTwoMinutes     BarSize = "2 mins"
	BarSizeThreeMinutes   BarSize = "3 mins"
	BarSizeFiveMinutes    BarSize = "5 mins"
	BarSizeTenMinutes     BarSize = "10 mins"
	BarSizeFifteenMinutes BarSize = "15 mins"
	BarSizeTwentyMinutes  BarSize = "20 mins"
	BarSizeThirtyMinutes  BarSize = "30 mins"
	BarSizeOneHour        BarSize = "1 hour"
	BarSizeTwoHours       BarSize = "2 hours"
	BarSizeThreeHours     BarSize = "3 hours"
	BarSizeFourHours      BarSize = "4 hours"
	BarSizeEightHours     BarSize = "8 hours"
	BarSizeOneDay         BarSize = "1 day"
	BarSizeOneWeek        BarSize = "1 week"
	BarSizeOneMonth       BarSize = "1 month"
)

type barInterval struct {
	multiplier int
	timespan   models.Timespan
	// binance kline interval, empty when the exchange has no equivalent
	binance string
}

var barIntervals = map[BarSize]barInterval{
	BarSizeOneSecond:      {1, models.Second, "1s"},
	BarSizeFiveSeconds:    {5, models.Second, ""},
	BarSizeTenSeconds:     {10, models.Second, ""},
	BarSizeFifteenSeconds: {15, models.Second, ""},
	BarSizeThirtySeconds:  {30, models.Second, ""},
	BarSizeOneMinute:      {1, models.Minute, "1m"},
	BarSizeTwoMinutes:     {2, models.Minute, ""},
	BarSizeThreeMinutes:   {3, models.Minute, "3m"},
	BarSizeFiveMinutes:    {5, models.Minute, "5m"},
	BarSizeTenMinutes:     {10, models.Minute, ""},
	BarSizeFifteenMinutes: {15, models.Minute, "15m"},
	BarSizeTwentyMinutes:  {20, models.Minute, ""},
	BarSizeThirtyMinutes:  {30, models.Minute, "30m"},
	BarSizeOneHour:        {1, models.Hour, "1h"},
	BarSizeTwoHours:       {2, models.Hour, "2h"},
	BarSizeThreeHours:     {3, models.Hour, ""},
	BarSizeFourHours:      {4, models.Hour, "4h"},
	BarSizeEightHours:     {8, models.Hour, "8h"},
	BarSizeOneDay:         {1, models.Day, "1d"},
	BarSizeOneWeek:        {1, models.Week, "1w"},
	BarSizeOneMonth:       {1, models.Month, "1M"},
}

// BarSizes returns every supported bar size from the finest to the coarsest.
func BarSizes() []BarSize {
	return []BarSize{
		BarSizeOneSecond, BarSizeFiveSeconds, BarSizeTenSeconds, BarSizeFifteenSeconds, BarSizeThirtySeconds,
		BarSizeOneMinute, BarSizeTwoMinutes, BarSizeThreeMinutes, BarSizeFiveMinutes, BarSizeTenMinutes,
		BarSizeFifteenMinutes, BarSizeTwentyMinutes, BarSizeThirtyMinutes,
		BarSizeOneHour, BarSizeTwoHours, BarSizeThreeHours, BarSizeFourHours, BarSizeEightHours,
		BarSizeOneDay, BarSizeOneWeek, BarSizeOneMonth,
	}
}

// Valid reports whether b is one of BarSizes.
func (b BarSize) Valid() bool {
	_, ok := barIntervals[b]

	return ok
}

// Polygon returns the aggregate multiplier and timespan for b.
func (b BarSize) Polygon() (int, models.Timespan) {
	interval := barIntervals[b]

	return interval.multiplier, interval.timespan
}

// BinanceInterval returns the kline interval for b.
func (b BarSize) BinanceInterval() (string, error) {
	interval, ok := barIntervals[b]
	if !ok || interval.binance == "" {
		return "", errors.Newf(errors.ErrCodeInvalidBarSize, "bar size %q has no binance kline interval", b)
	}

	return interval.binance, nil
}

// DataType selects which price the bars are built from.
type DataType string

const (
	DataTypeTrades                  DataType = "TRADES"
	DataTypeMidpoint                DataType = "MIDPOINT"
	DataTypeBid                     DataType = "BID"
	DataTypeAsk                     DataType = "ASK"
	DataTypeBidAsk                  DataType = "BID_ASK"
	DataTypeAdjustedLast            DataType = "ADJUSTED_LAST"
	DataTypeHistoricalVolatility    DataType = "HISTORICAL_VOLATILITY"
	DataTypeOptionImpliedVolatility DataType = "OPTION_IMPLIED_VOLATILITY"
	DataTypeRebateRate              DataType = "REBATE_RATE"
	DataTypeFeeRate                 DataType = "FEE_RATE"
	DataTypeYieldBid                DataType = "YIELD_BID"
	DataTypeYieldAsk                DataType = "YIELD_ASK"
	DataTypeYieldBidAsk             DataType = "YIELD_BID_ASK"
	DataTypeYieldLast               DataType = "YIELD_LAST"
)

// DataTypes returns every supported data type.
func DataTypes() []DataType {
	return []DataType{
		DataTypeTrades, DataTypeMidpoint, DataTypeBid, DataTypeAsk, DataTypeBidAsk,
		DataTypeAdjustedLast, DataTypeHistoricalVolatility, DataTypeOptionImpliedVolatility,
		DataTypeRebateRate, DataTypeFeeRate,
		DataTypeYieldBid, DataTypeYieldAsk, DataTypeYieldBidAsk, DataTypeYieldLast,
	}
}

// Valid reports whether d is one of DataTypes.
func (d DataType) Valid() bool {
	return slices.Contains(DataTypes(), d)
}

// DurationUnit is the unit of a lookback Duration.
type DurationUnit string

const (
	DurationSeconds DurationUnit = "S"
	DurationDays    DurationUnit = "D"
	DurationWeeks   DurationUnit = "W"
	DurationMonths  DurationUnit = "M"
	DurationYears   DurationUnit = "Y"
)

// Duration is a lookback window such as "60 D".
type Duration struct {
	Count int
	Unit  DurationUnit
}

// ParseDuration parses "<count> <unit>" where unit is one of S, D, W, M or Y.
func ParseDuration(s string) (Duration, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Duration{}, errors.Newf(errors.ErrCodeInvalidDuration, "duration must look like \"60 D\", got %q", s)
	}

	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return Duration{}, errors.Newf(errors.ErrCodeInvalidDuration, "duration count must be a positive integer, got %q", fields[0])
	}

	unit := DurationUnit(strings.ToUpper(fields[1]))
	switch unit {
	case DurationSeconds, DurationDays, DurationWeeks, DurationMonths, DurationYears:
	default:
		return Duration{}, errors.Newf(errors.ErrCodeInvalidDuration, "duration unit must be one of S, D, W, M, Y, got %q", fields[1])
	}

	return Duration{Count: count, Unit: unit}, nil
}

// Before returns the start of the window that ends at end.
func (d Duration) Before(end time.Time) time.Time {
	switch d.Unit {
	case DurationSeconds:
		return end.Add(-time.Duration(d.Count) * time.Second)
	case DurationWeeks:
		return end.AddDate(0, 0, -7*d.Count)
	case DurationMonths:
		return end.AddDate(0, -d.Count, 0)
	case DurationYears:
		return end.AddDate(-d.Count, 0, 0)
	default:
		return end.AddDate(0, 0, -d.Count)
	}
}

func (d Duration) String() string {
	return strconv.Itoa(d.Count) + " " + string(d.Unit)
}

// Query describes a historical bar request.
type Query struct {
	Symbol   string   `validate:"required"`
	Duration string   `validate:"required"`
	BarSize  BarSize  `validate:"required"`
	DataType DataType `validate:"required"`
	// End of the window. The zero value means now.
	End time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the query before anything is fetched.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return errors.Wrap(errors.ErrCodeMissingParameter, "invalid market data query", err)
	}

	if !q.BarSize.Valid() {
		return errors.Newf(errors.ErrCodeInvalidBarSize, "invalid bar size %q, choose from %v", q.BarSize, BarSizes())
	}

	if !q.DataType.Valid() {
		return errors.Newf(errors.ErrCodeInvalidDataType, "invalid data type %q, choose from %v", q.DataType, DataTypes())
	}

	if _, err := ParseDuration(q.Duration); err != nil {
		return err
	}

	return nil
}

// Window validates q and returns the [start, end] range it covers.
func (q Query) Window() (time.Time, time.Time, error) {
	if err := q.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	duration, _ := ParseDuration(q.Duration)

	end := q.End
	if end.IsZero() {
		end = time.Now().UTC()
	}

	return duration.Before(end), end, nil
}
