package loans

import (
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/loan-tracker/pkg/datetime"
)

func TestSeriesEMI(t *testing.T) {
	loan := emiLoan(100000, 10, 12, "2025-01-15",
		repayment("r1", "2025-02-15", 8792, 7958, 834),
		repayment("r2", "2025-03-15", 8792, 8025, 767),
	)
	now := datetime.MustParse("2025-03-20")

	points, err := Series(loan, now)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Series() returned %d points, expected 2", len(points))
	}

	if points[0].Label != "Jan 15, 2025" {
		t.Errorf("first label = %q, expected %q", points[0].Label, "Jan 15, 2025")
	}
	if math.Abs(points[0].Total-105499.0647) > 0.001 {
		t.Errorf("first total = %.4f, expected the full obligation 105499.0647", points[0].Total)
	}
	if points[1].Label != "Mar 20, 2025" {
		t.Errorf("second label = %q, expected %q", points[1].Label, "Mar 20, 2025")
	}
	if math.Abs(points[1].Total-87915.0647) > 0.001 {
		t.Errorf("second total = %.4f, expected 87915.0647", points[1].Total)
	}
	for i, point := range points {
		if point.Interest != 0 {
			t.Errorf("point %d interest = %.2f, expected 0 for EMI loans", i, point.Interest)
		}
	}
}

func TestSeriesDailySampling(t *testing.T) {
	tests := []struct {
		name           string
		start          string
		now            string
		expectedPoints int
		secondLabel    string
	}{
		{
			name:           "Hundred days samples every fifth day",
			start:          "2025-01-01",
			now:            "2025-04-11",
			expectedPoints: 21,
			secondLabel:    "Jan 6",
		},
		{
			name:           "Short loan samples every day",
			start:          "2025-01-01",
			now:            "2025-01-08",
			expectedPoints: 8,
			secondLabel:    "Jan 2",
		},
		{
			name:           "Off-stride final day is always included",
			start:          "2025-01-01",
			now:            "2025-02-13",
			expectedPoints: 23, // stride 2 over 43 days
			secondLabel:    "Jan 3",
		},
		{
			name:           "Same day yields only the start point",
			start:          "2025-01-01",
			now:            "2025-01-01",
			expectedPoints: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := dailyLoan(10000, 10, tt.start)
			points, err := Series(loan, datetime.MustParse(tt.now))
			if err != nil {
				t.Fatalf("Series() error = %v", err)
			}
			if len(points) != tt.expectedPoints {
				t.Fatalf("Series() returned %d points, expected %d", len(points), tt.expectedPoints)
			}
			if points[0].Label != datetime.MustParse(tt.start).Format("Jan 2, 2006") {
				t.Errorf("first label = %q", points[0].Label)
			}
			if points[0].Total != loan.Principal || points[0].Interest != 0 {
				t.Errorf("first point = %+v, expected the principal with no interest", points[0])
			}
			if tt.secondLabel != "" && points[1].Label != tt.secondLabel {
				t.Errorf("second label = %q, expected %q", points[1].Label, tt.secondLabel)
			}
			if last := points[len(points)-1]; last.Date != datetime.MustParse(tt.now) {
				t.Errorf("last point date = %s, expected %s", last.Date, tt.now)
			}
		})
	}
}

func TestSeriesDailyMatchesStatus(t *testing.T) {
	loan := dailyLoan(10000, 10, "2025-01-01",
		repayment("r2", "2025-03-01", 600, 500, 100),
		repayment("r1", "2025-02-01", 1050, 1000, 50),
	)
	now := datetime.MustParse("2025-04-11")

	points, err := Series(loan, now)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	status, err := AccrualStatus(loan, now)
	if err != nil {
		t.Fatalf("AccrualStatus() error = %v", err)
	}

	last := points[len(points)-1]
	if math.Abs(last.Total-status.TotalDue) > 1e-6 {
		t.Errorf("last total = %.6f, expected status total %.6f", last.Total, status.TotalDue)
	}
	if math.Abs(last.Interest-status.AccruedInterest) > 1e-6 {
		t.Errorf("last interest = %.6f, expected status interest %.6f", last.Interest, status.AccruedInterest)
	}
}

func TestSeriesDailyClampsNegativeValues(t *testing.T) {
	loan := dailyLoan(1000, 10, "2025-01-01",
		repayment("r1", "2025-01-03", 2000, 1500, 500),
	)

	points, err := Series(loan, datetime.MustParse("2025-01-10"))
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	for i, point := range points {
		if point.Total < 0 || point.Interest < 0 {
			t.Errorf("point %d has negative values: %+v", i, point)
		}
	}

	// The unclamped status still reports the overpayment.
	status, err := AccrualStatus(loan, datetime.MustParse("2025-01-10"))
	if err != nil {
		t.Fatalf("AccrualStatus() error = %v", err)
	}
	if status.TotalDue >= 0 {
		t.Errorf("status TotalDue = %.2f, expected negative", status.TotalDue)
	}
}

func TestSeriesDailySkipsRepaymentsOnStartDate(t *testing.T) {
	// A repayment on the start date is never reached by the day walk.
	loan := dailyLoan(10000, 10, "2025-01-01",
		repayment("r0", "2025-01-01", 5000, 5000, 0),
	)

	points, err := Series(loan, datetime.MustParse("2025-01-11"))
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	last := points[len(points)-1]
	expected := 10000 + 10000*10*10/36500.0
	if math.Abs(last.Total-expected) > 1e-6 {
		t.Errorf("last total = %.4f, expected %.4f", last.Total, expected)
	}
}

func TestSeriesErrors(t *testing.T) {
	tests := []struct {
		name string
		loan Record
		now  datetime.Date
	}{
		{"Missing now", dailyLoan(1000, 10, "2025-01-01"), datetime.Date{}},
		{"Unknown kind", Record{Principal: 1, StartDate: datetime.MustParse("2025-01-01")}, datetime.MustParse("2025-02-01")},
		{"EMI without tenure", emiLoan(1000, 10, 0, "2025-01-01"), datetime.MustParse("2025-02-01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Series(tt.loan, tt.now); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Series() error = %v, expected ErrInvalidInput", err)
			}
		})
	}
}
