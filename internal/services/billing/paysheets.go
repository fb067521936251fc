package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/money"
	"github.com/SprintLogistics/sptms/internal/services/sequence"
	"github.com/SprintLogistics/sptms/internal/storage/store"
)

// DefaultQuickPayFeePercent is the fee charged for the accelerated
// payout when the carrier takes quick pay.
const DefaultQuickPayFeePercent = 3.0

const (
	quickPayDueDays = 2
	standardDueDays = 30
)

// PaySheetAssembler turns completed loads into carrier pay sheets.
type PaySheetAssembler struct {
	loads    loadRepo
	carriers carrierRepo
	payments paymentRepo
	numbers  numberer

	quickPayFeePercent float64
	now                func() time.Time
}

func NewPaySheetAssembler(loads loadRepo, carriers carrierRepo, payments paymentRepo, numbers numberer, quickPayFeePercent float64) *PaySheetAssembler {
	if quickPayFeePercent <= 0 {
		quickPayFeePercent = DefaultQuickPayFeePercent
	}
	return &PaySheetAssembler{
		loads:              loads,
		carriers:           carriers,
		payments:           payments,
		numbers:            numbers,
		quickPayFeePercent: quickPayFeePercent,
		now:                time.Now,
	}
}

type PaySheetRequest struct {
	LoadIDs      []string           `json:"loadIds"`
	CombineLoads bool               `json:"combineLoads"`
	PaymentType  models.PaymentType `json:"paymentType,omitempty"`
}

var paySheetEligible = map[models.LoadStatus]bool{
	models.LoadStatusDelivered: true,
	models.LoadStatusInvoiced:  true,
	models.LoadStatusPaid:      true,
}

// Generate validates the whole load set up front, then creates one pay
// sheet per load, or a single combined sheet when requested.
func (a *PaySheetAssembler) Generate(ctx context.Context, req PaySheetRequest) ([]*models.CarrierPayment, error) {
	loads, err := resolveLoads(ctx, a.loads, req.LoadIDs)
	if err != nil {
		return nil, err
	}

	for _, l := range loads {
		if l.CarrierID == "" {
			return nil, errs.Validationf("load %s has no carrier", l.LoadNumber)
		}
		if !paySheetEligible[l.Status] {
			return nil, errs.Validationf("load %s is not payable (status %s)", l.LoadNumber, l.Status)
		}
	}
	if req.CombineLoads {
		for _, l := range loads[1:] {
			if l.CarrierID != loads[0].CarrierID {
				return nil, errs.Validationf("combined loads must share one carrier: %s differs", l.LoadNumber)
			}
		}
	}

	groups := [][]*models.Load{}
	if req.CombineLoads {
		groups = append(groups, loads)
	} else {
		for _, l := range loads {
			groups = append(groups, []*models.Load{l})
		}
	}

	var out []*models.CarrierPayment
	for _, group := range groups {
		p, err := a.assemble(ctx, group, req.PaymentType)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *PaySheetAssembler) assemble(ctx context.Context, loads []*models.Load, requested models.PaymentType) (*models.CarrierPayment, error) {
	carrier, err := a.carriers.ByID(ctx, loads[0].CarrierID)
	if err != nil {
		return nil, err
	}

	// Request overrides the carrier's standing preference.
	paymentType := requested
	if paymentType == "" {
		paymentType = carrier.PaymentMethod
	}
	if paymentType == "" {
		paymentType = models.PaymentStandard
	}

	now := a.now().UTC()
	number, err := a.numbers.Next(ctx, store.CollectionPayments, "paySheetNumber",
		sequence.PeriodPrefix(sequence.KindPaySheet, now))
	if err != nil {
		return nil, err
	}

	items := CarrierLineItems(loads)
	amounts := make([]float64, 0, len(items))
	for _, it := range items {
		amounts = append(amounts, it.Amount)
	}
	subtotal := money.Sum(amounts...)

	var deductions []models.Deduction
	var quickPayFee *float64
	dueDays := standardDueDays
	if paymentType == models.PaymentQuickPay {
		fee := a.quickPayFeePercent
		quickPayFee = &fee
		deductions = append(deductions, models.Deduction{
			Description: fmt.Sprintf("Quick Pay Fee (%g%%)", fee),
			Amount:      money.Percent(subtotal, fee),
			Type:        "quick-pay-fee",
		})
		dueDays = quickPayDueDays
	}

	dedAmounts := make([]float64, 0, len(deductions))
	for _, d := range deductions {
		dedAmounts = append(dedAmounts, d.Amount)
	}
	totalDeductions := money.Sum(dedAmounts...)

	loadIDs := make([]string, 0, len(loads))
	for _, l := range loads {
		loadIDs = append(loadIDs, l.ID)
	}

	p := &models.CarrierPayment{
		PaySheetNumber:     number,
		Status:             models.PaymentStatusPending,
		CarrierID:          carrier.ID,
		LoadIDs:            loadIDs,
		PaymentType:        paymentType,
		QuickPayFeePercent: quickPayFee,
		LineItems:          items,
		Deductions:         deductions,
		Subtotal:           subtotal,
		TotalDeductions:    totalDeductions,
		Total:              money.Round2(subtotal - totalDeductions),
		DueDate:            now.AddDate(0, 0, dueDays),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if paymentType == models.PaymentFactoring {
		p.FactoringCompany = carrier.FactoringCompany
	}
	return a.payments.Create(ctx, p)
}
