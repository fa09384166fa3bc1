package models

import "testing"

func TestAlertStateTransitionsForwardOnly(t *testing.T) {
	cases := []struct {
		from    AlertState
		to      AlertState
		allowed bool
	}{
		{AlertStateOpen, AlertStateAcknowledged, true},
		{AlertStateOpen, AlertStateResolved, true},
		{AlertStateAcknowledged, AlertStateResolved, true},
		{AlertStateAcknowledged, AlertStateOpen, false},
		{AlertStateResolved, AlertStateOpen, false},
		{AlertStateResolved, AlertStateAcknowledged, false},
		{AlertStateOpen, AlertStateOpen, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestAllowedAlertActionsResolveToValidTargets(t *testing.T) {
	categories := []AlertCategory{
		AlertCategoryCompromisedInventory,
		AlertCategoryScoreThreshold,
		AlertCategoryDiscrepancy,
		AlertCategoryDataQuality,
		AlertCategoryOperational,
	}
	for _, category := range categories {
		actions := AllowedAlertActions(category)
		if len(actions) == 0 {
			t.Fatalf("category %s has no allowed actions", category)
		}
		for _, action := range actions {
			target, err := AlertActionTarget(action)
			if err != nil {
				t.Fatalf("category %s action %s: %v", category, action, err)
			}
			if !AlertStateOpen.CanTransitionTo(target) {
				t.Fatalf("category %s action %s targets %s, unreachable from open", category, action, target)
			}
		}
	}
}

func TestAlertActionTargets(t *testing.T) {
	cases := []struct {
		action AlertAction
		target AlertState
	}{
		{AlertActionAcknowledge, AlertStateAcknowledged},
		{AlertActionInvestigate, AlertStateAcknowledged},
		{AlertActionEscalate, AlertStateAcknowledged},
		{AlertActionResolve, AlertStateResolved},
		{AlertActionWriteOff, AlertStateResolved},
		{AlertActionDismiss, AlertStateResolved},
	}
	for _, tc := range cases {
		target, err := AlertActionTarget(tc.action)
		if err != nil {
			t.Fatalf("action %s: %v", tc.action, err)
		}
		if target != tc.target {
			t.Fatalf("action %s: expected target %s, got %s", tc.action, tc.target, target)
		}
	}
	if _, err := AlertActionTarget("explode"); err == nil {
		t.Fatalf("unknown action must error")
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityNone, SeverityMedium, SeverityLow); got != SeverityMedium {
		t.Fatalf("expected medium, got %s", got)
	}
	if got := MaxSeverity(SeverityHigh, SeverityCritical); got != SeverityCritical {
		t.Fatalf("expected critical, got %s", got)
	}
	if got := MaxSeverity(); got != SeverityNone {
		t.Fatalf("empty input defaults to none, got %s", got)
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityHigh.AtLeast(SeverityMedium) {
		t.Fatalf("high is at least medium")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Fatalf("low is not at least medium")
	}
	if !SeverityMedium.AtLeast(SeverityMedium) {
		t.Fatalf("at-least is inclusive")
	}
}

func TestDocumentTypeValid(t *testing.T) {
	for _, dt := range []DocumentType{DocumentTypeInvoice, DocumentTypePackingList, DocumentTypeBillOfLading, DocumentTypeCustoms} {
		if !dt.Valid() {
			t.Fatalf("%s should be valid", dt)
		}
	}
	if DocumentType("Receipt").Valid() {
		t.Fatalf("unknown document type must be invalid")
	}
}
