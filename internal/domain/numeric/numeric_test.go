package numeric_test

import (
	"errors"
	"testing"

	"github.com/okian/peerreview/internal/domain/numeric"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPercentage(t *testing.T) {
	Convey("Given percentage cells", t, func() {
		Convey("When the cell is a plain or percent-suffixed number", func() {
			for raw, want := range map[string]float64{
				"50":       50,
				"50%":      50,
				" 33.3 % ": 33.3,
				"0":        0,
				"120%":     120,
				"25％":      25,
			} {
				got, err := numeric.Percentage(raw)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When the cell is blank", func() {
			_, err := numeric.Percentage("   ")
			So(errors.Is(err, numeric.ErrEmpty), ShouldBeTrue)
			_, err = numeric.Percentage("NaN")
			So(errors.Is(err, numeric.ErrEmpty), ShouldBeTrue)
		})

		Convey("When the cell is text", func() {
			_, err := numeric.Percentage("about half")
			So(errors.Is(err, numeric.ErrMalformed), ShouldBeTrue)
			So(numeric.OrZero(numeric.Percentage("about half")), ShouldEqual, 0)
		})

		Convey("When the cell is infinite", func() {
			_, err := numeric.Percentage("Inf")
			So(errors.Is(err, numeric.ErrMalformed), ShouldBeTrue)
		})
	})
}

func TestCurrency(t *testing.T) {
	Convey("Given currency cells", t, func() {
		Convey("When symbols and thousand separators are present", func() {
			got, err := numeric.Currency("$1,234.50")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 1234.5)

			got, err = numeric.Currency(" -$12 ")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, -12)
		})

		Convey("When the cell is malformed it degrades to zero through OrZero", func() {
			_, err := numeric.Currency("twelve dollars")
			So(errors.Is(err, numeric.ErrMalformed), ShouldBeTrue)
			So(numeric.OrZero(numeric.Currency("twelve dollars")), ShouldEqual, 0)
		})

		Convey("When the cell spells out infinity it is malformed", func() {
			_, err := numeric.Currency("Inf")
			So(errors.Is(err, numeric.ErrMalformed), ShouldBeTrue)
		})
	})
}
