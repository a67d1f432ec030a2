package threshold

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

func w(v float64) *float64 { return &v }

var limits = &entity.Thresholds{Upper: 40, Lower: 8}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		weight *float64
		th     *entity.Thresholds
		status Status
		dist   float64
	}{
		{"sobre upper", w(50), limits, StatusGood, 10},
		{"igual a upper", w(40), limits, StatusGood, 0},
		{"entre límites", w(20), limits, StatusWarning, 12},
		{"igual a lower", w(8), limits, StatusWarning, 0},
		{"bajo lower", w(3), limits, StatusCritical, 5},
		{"báscula vacía", w(0), limits, StatusCritical, 8},
		{"sin medición", nil, limits, StatusUnknown, 0},
		{"sin límites", w(10), nil, StatusUnknown, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.weight, c.th)
			assert.Equal(t, c.status, got.Status)
			assert.InDelta(t, c.dist, got.Distance, 1e-9)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(entity.Thresholds{Upper: 40, Lower: 8}))
	assert.NoError(t, Validate(entity.Thresholds{Upper: 1, Lower: 0}))

	for _, bad := range []entity.Thresholds{
		{Upper: 8, Lower: 8},
		{Upper: 5, Lower: 10},
		{Upper: 0, Lower: -1},
		{Upper: 10, Lower: -1},
		{Upper: math.NaN(), Lower: 1},
	} {
		assert.ErrorIs(t, Validate(bad), domain.ErrInvalidInput, "%+v", bad)
	}
}

func TestPercentage(t *testing.T) {
	th := entity.Thresholds{Upper: 40, Lower: 8}
	assert.Equal(t, 100, Percentage(41, th))
	assert.Equal(t, 0, Percentage(8, th))
	assert.Equal(t, 0, Percentage(-3, th))
	assert.Equal(t, 50, Percentage(24, th))
	assert.Equal(t, 25, Percentage(16, th))
}

func TestRank_OrdenPorUrgencia(t *testing.T) {
	products := []entity.Product{
		{ID: "sin-bascula", Thresholds: limits},
		{ID: "bien", ScaleID: "s1", Thresholds: limits},
		{ID: "critico-leve", ScaleID: "s2", Thresholds: limits},
		{ID: "sin-medicion", ScaleID: "s3", Thresholds: limits},
		{ID: "critico-grave", ScaleID: "s4", Thresholds: limits},
		{ID: "alerta", ScaleID: "s5", Thresholds: limits},
	}
	weights := map[string]*float64{"s1": w(45), "s2": w(7), "s4": w(1), "s5": w(10)}

	ranked := Rank(products, weights)
	require.Len(t, ranked, len(products))

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.Product.ID)
	}
	assert.Equal(t, []string{"critico-grave", "critico-leve", "alerta", "bien", "sin-medicion", "sin-bascula"}, ids)
}

func TestValidateNotifications(t *testing.T) {
	ok := Notifications{
		Upper: &NotificationTarget{PhoneNumber: "+972501234567", Message: "lleno"},
		Lower: &NotificationTarget{PhoneNumber: "972501234567", Message: "reponer"},
	}
	assert.NoError(t, ValidateNotifications(ok))

	missing := ok
	missing.Lower = nil
	assert.ErrorIs(t, ValidateNotifications(missing), domain.ErrInvalidInput)

	badPhone := ok
	badPhone.Upper = &NotificationTarget{PhoneNumber: "050-123", Message: "x"}
	assert.ErrorIs(t, ValidateNotifications(badPhone), domain.ErrInvalidInput)

	noMsg := ok
	noMsg.Lower = &NotificationTarget{PhoneNumber: "+15551234567", Message: "  "}
	assert.ErrorIs(t, ValidateNotifications(noMsg), domain.ErrInvalidInput)
}
