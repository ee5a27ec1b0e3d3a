package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumericConversionKeepsScale(t *testing.T) {
	for _, s := range []string{"307453.43", "0", "-60546.57", "2000000", "0.0001"} {
		d := decimal.RequireFromString(s)
		got := numericToDecimal(decimalToNumeric(d))
		assert.True(t, d.Equal(got), "%s round-tripped to %s", s, got)
	}
}

func TestDateConversionDropsClock(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	in := time.Date(2024, time.February, 15, 23, 30, 0, 0, bogota)

	got := pgToDate(dateToPg(in))
	assert.Equal(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), got)

	assert.Nil(t, datePtr(optionalDate(nil)))
	assert.Nil(t, int4Ptr(optionalInt4(nil)))

	n := 3
	assert.Equal(t, 3, *int4Ptr(optionalInt4(&n)))
}
