package personalization

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/delicado-shop/delicado-api/internal/products"
	"github.com/delicado-shop/delicado-api/internal/templates"
	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/db/dbtest"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/sessionstate"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

type fixture struct {
	svc       Service
	conn      *gorm.DB
	products  *product.Repository
	templates *templates.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		conn:      conn,
		products:  product.NewRepository(conn),
		templates: templates.NewRepository(conn),
	}
	svc, err := NewService(ServiceParams{
		Storage:   sessionstate.NewMemoryStorage(),
		TTL:       time.Hour,
		Repo:      NewRepository(conn),
		Tx:        db.NewFromConn(conn),
		Products:  f.products,
		Templates: f.templates,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) product(t *testing.T, category string) uuid.UUID {
	t.Helper()
	p := &models.Product{Name: "Tee", Price: decimal.RequireFromString("15.00"), Category: category, Stock: 3}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p.ID
}

func (f *fixture) template(t *testing.T, categories ...string) uuid.UUID {
	t.Helper()
	tmpl := &models.DesignTemplate{Name: "Flores", Category: "floral", ApplicableProductCategories: pq.StringArray(categories)}
	require.NoError(t, f.templates.Create(context.Background(), tmpl))
	return tmpl.ID
}

func TestServiceCompletePersistsAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.product(t, "apparel")
	templateID := f.template(t, "apparel")
	userID := uuid.New()

	_, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectProduct, ID: &productID})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectTemplate, ID: &templateID})
	require.NoError(t, err)
	state, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSetText, Text: "Ana", TextStyle: &types.TextStyle{Color: "#112233"}})
	require.NoError(t, err)
	assert.Equal(t, "Ana", state.CustomText)

	saved, err := f.svc.Complete(ctx, "wiz-1", &userID)
	require.NoError(t, err)
	require.NotNil(t, saved.ID)
	assert.Equal(t, productID, saved.ProductID)
	assert.Equal(t, templateID, saved.TemplateID)
	assert.Equal(t, "Ana", saved.CustomText)
	assert.Equal(t, &userID, saved.UserID)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPersonalizationSaved).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	after, err := f.svc.Session(ctx, "wiz-1")
	require.NoError(t, err)
	assert.Equal(t, Initial(), after)

	loaded, err := f.svc.Get(ctx, *saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", loaded.CustomText)
	require.NotNil(t, loaded.TextStyle)
	assert.Equal(t, "#112233", loaded.TextStyle.Color)
}

func TestServiceApplyRejectsUnknownRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectProduct, ID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectTemplate, ID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	state, err := f.svc.Session(ctx, "wiz-1")
	require.NoError(t, err)
	assert.Nil(t, state.ProductID)
}

func TestServiceTemplateMustApplyToProductCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "kitchen")
	shirtOnly := f.template(t, "apparel")

	_, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectProduct, ID: &mug})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectTemplate, ID: &shirtOnly})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	anywhere := f.template(t)
	_, err = f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectTemplate, ID: &anywhere})
	assert.NoError(t, err)
}

func TestServiceCompleteRequiresProductAndTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.product(t, "apparel")

	_, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSelectProduct, ID: &productID})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, "wiz-1", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	state, err := f.svc.Session(ctx, "wiz-1")
	require.NoError(t, err)
	assert.Equal(t, productID, *state.ProductID)
}

func TestServiceRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, "wiz-1", Action{Kind: ActionSetText, Text: "x", TextStyle: &types.TextStyle{Color: "red-ish"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Apply(ctx, "", Action{Kind: ActionNext})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
