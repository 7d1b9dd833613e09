package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/service/workflow"
)

func TestDefaultEventsLoadClean(t *testing.T) {
	registry, err := workflow.NewRegistry(workflow.DefaultEvents())
	require.NoError(t, err)

	ev, ok := registry.Event(workflow.EventQuotationAccepted)
	require.True(t, ok)
	assert.Contains(t, ev.Templates, model.RoleBDE)

	_, ok = registry.Event("order.invented")
	assert.False(t, ok)
}

func TestTemplateRender(t *testing.T) {
	tmpl := workflow.Template{
		Severity: model.SeverityWarning,
		Title:    "Quotation for {OrderCode}",
		Message:  "{ActorName} rejected order {OrderCode}: {Reason}",
		Link:     "/orders/{OrderCode}",
	}

	title, message, link := tmpl.Render(workflow.Vars{
		OrderCode: "Q-AB12CD34",
		ActorName: "Priya",
		Reason:    "budget too high",
	})

	assert.Equal(t, "Quotation for Q-AB12CD34", title)
	assert.Equal(t, "Priya rejected order Q-AB12CD34: budget too high", message)
	assert.Equal(t, "/orders/Q-AB12CD34", link)
}

func TestTemplateRenderMissingVarsRenderEmpty(t *testing.T) {
	tmpl := workflow.Template{
		Severity: model.SeverityInfo,
		Title:    "Order {OrderCode}",
		Message:  "deadline {Deadline}",
	}

	title, message, _ := tmpl.Render(workflow.Vars{OrderCode: "W-11223344"})
	assert.Equal(t, "Order W-11223344", title)
	assert.Equal(t, "deadline ", message)
}

func TestNewRegistryRejectsUnknownPlaceholder(t *testing.T) {
	_, err := workflow.NewRegistry([]workflow.Event{{
		Name: "order.test",
		Templates: map[model.Role]workflow.Template{
			model.RoleClient: {
				Severity: model.SeverityInfo,
				Title:    "Order {OrderNumber}",
			},
		},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OrderNumber")
}

func TestNewRegistryRejectsUnknownSeverity(t *testing.T) {
	_, err := workflow.NewRegistry([]workflow.Event{{
		Name: "order.test",
		Templates: map[model.Role]workflow.Template{
			model.RoleClient: {
				Severity: model.Severity("urgent"),
				Title:    "Order {OrderCode}",
			},
		},
	}})
	assert.Error(t, err)
}

func TestNewRegistryRejectsDuplicateEvent(t *testing.T) {
	ev := workflow.Event{
		Name: "order.test",
		Templates: map[model.Role]workflow.Template{
			model.RoleClient: {Severity: model.SeverityInfo, Title: "t"},
		},
	}
	_, err := workflow.NewRegistry([]workflow.Event{ev, ev})
	assert.Error(t, err)
}
