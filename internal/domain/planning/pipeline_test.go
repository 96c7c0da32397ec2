package planning

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// PlanPipelineTestSuite exercises the full decision flow end to end.
type PlanPipelineTestSuite struct {
	suite.Suite
	pipeline *Pipeline
}

func TestPlanPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PlanPipelineTestSuite))
}

func (s *PlanPipelineTestSuite) SetupTest() {
	s.pipeline = NewPipeline(DefaultEngineConfig(), testRegistry())
}

func (s *PlanPipelineTestSuite) TestPlan_InvalidRequest_ReturnsError() {
	pools := map[string][]catalog.Candidate{}

	s.Run("EmptyIngredients", func() {
		_, err := s.pipeline.Plan(PlanRequest{Servings: 2}, pools, testStores(), noFacts())
		s.ErrorIs(err, ErrNoIngredients)
	})

	s.Run("BlankIngredientName", func() {
		req := PlanRequest{Ingredients: []IngredientRequest{{Name: "   "}}, Servings: 2}
		_, err := s.pipeline.Plan(req, pools, testStores(), noFacts())
		s.ErrorIs(err, ErrNoIngredients)
	})

	s.Run("ZeroServings", func() {
		req := PlanRequest{Ingredients: []IngredientRequest{{Name: "rice"}}, Servings: 0}
		_, err := s.pipeline.Plan(req, pools, testStores(), noFacts())
		s.ErrorIs(err, ErrInvalidServings)
	})

	s.Run("NegativeServings", func() {
		req := PlanRequest{Ingredients: []IngredientRequest{{Name: "rice"}}, Servings: -3}
		_, err := s.pipeline.Plan(req, pools, testStores(), noFacts())
		s.ErrorIs(err, ErrInvalidServings)
	})
}

func (s *PlanPipelineTestSuite) TestPlan_TurmericShortlist_PrefersOrganicGlass() {
	// Arrange
	req := PlanRequest{
		Ingredients: []IngredientRequest{{Name: "turmeric", Form: catalog.FormPowder, Quantity: "2 tbsp"}},
		Servings:    4,
	}
	pools := map[string][]catalog.Candidate{
		"turmeric": {
			testCandidate("tur-organic", "store-a", "turmeric", 7.99,
				organic(), withForm(catalog.FormPowder), withPackaging(catalog.PackagingGlass)),
			testCandidate("tur-plastic", "store-a", "turmeric", 4.99,
				withForm(catalog.FormPowder), withPackaging(catalog.PackagingRecyclablePlastic)),
			testCandidate("tur-paper", "store-a", "turmeric", 5.49,
				withForm(catalog.FormPowder), withPackaging(catalog.PackagingPaper)),
		},
	}
	facts := NewStaticFacts(nil, map[string]ResidueCategory{"turmeric": ResidueCategoryHigh})

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), facts)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.Items, 1)
	item := plan.Items[0]

	s.Equal(ItemStatusAvailable, item.Status)
	s.Require().NotNil(item.Default)
	s.Equal("tur-organic", item.Default.ProductID)
	s.True(item.Default.Organic)

	s.Require().NotNil(item.CheaperSwap)
	s.Equal("tur-paper", item.CheaperSwap.ProductID)

	rules := make([]string, 0, len(item.Trace.Drivers))
	for _, d := range item.Trace.Drivers {
		rules = append(rules, d.Rule)
	}
	s.Contains(rules, RuleEWG)
	s.Contains(rules, RulePackaging)
	s.Contains(item.Trace.Tradeoffs, "Costs $2.50 more than the cheaper swap")
}

func (s *PlanPipelineTestSuite) TestPlan_UnstockedIngredient_KeepsItsCartSlot() {
	// Arrange
	req := planRequest("rice", "dragonfruit")
	pools := map[string][]catalog.Candidate{
		"rice": {testCandidate("r1", "store-a", "rice", 4.00)},
	}

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), noFacts())

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.Items, 2)

	s.Equal(ItemStatusAvailable, plan.Items[0].Status)
	s.Equal(ItemStatusUnavailable, plan.Items[1].Status)
	s.Require().NotNil(plan.Items[1].Default)
	s.Equal(0, plan.Items[1].Default.Quantity)
	s.Equal([]string{"Unavailable"}, plan.Items[1].Chips.Tradeoffs)
	s.Contains(plan.StorePlan.Unavailable, "dragonfruit")
	s.InDelta(4.00, plan.Totals.Ethical, 1e-9)
}

func (s *PlanPipelineTestSuite) TestPlan_ForeignPrivateLabel_NeverSelected() {
	// Arrange: Housemark belongs to store-a, yet a feed glitch lists a
	// cheap Housemark row at store-b alongside a legitimate option.
	req := planRequest("rice")
	pools := map[string][]catalog.Candidate{
		"rice": {
			testCandidate("hm-ghost", "store-b", "rice", 1.99, withBrand("Housemark")),
			testCandidate("legit", "store-b", "rice", 4.49),
		},
	}

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), noFacts())

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.Items, 1)
	item := plan.Items[0]

	s.Require().NotNil(item.Default)
	s.Equal("legit", item.Default.ProductID)
	s.Nil(item.CheaperSwap)

	s.Require().Len(item.Trace.Eliminated, 1)
	s.Equal("hm-ghost", item.Trace.Eliminated[0].ProductID)
	s.Equal(RejectionPrivateLabelViolation, item.Trace.Eliminated[0].Reason)
}

func (s *PlanPipelineTestSuite) TestPlan_RecalledBrand_FallsBackToNextBest() {
	// Arrange
	req := planRequest("peanut butter")
	pools := map[string][]catalog.Candidate{
		"peanut butter": {
			testCandidate("recalled", "store-a", "peanut butter", 3.99, withBrand("Sunrise Mills"), organic()),
			testCandidate("safe", "store-a", "peanut butter", 4.99),
		},
	}
	facts := NewStaticFacts(map[string]RecallStatus{"sunrise mills": RecallStatusRecalled}, nil)

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), facts)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.Items, 1)
	item := plan.Items[0]

	s.Require().NotNil(item.Default)
	s.Equal("safe", item.Default.ProductID)
	s.Require().Len(item.Trace.Eliminated, 1)
	s.Equal(RejectionRecallMatch, item.Trace.Eliminated[0].Reason)
}

func (s *PlanPipelineTestSuite) TestPlan_SpecialtyIngredients_OpenSecondStore() {
	// Arrange
	req := planRequest("rice", "lentil", "sumac", "asafoetida", "fenugreek")
	pools := map[string][]catalog.Candidate{
		"rice":       {testCandidate("r1", "store-a", "rice", 4.00)},
		"lentil":     {testCandidate("l1", "store-a", "lentil", 2.00)},
		"sumac":      {testCandidate("s1", "store-s", "sumac", 5.00, withDelivery(9))},
		"asafoetida": {testCandidate("a1", "store-s", "asafoetida", 6.00, withDelivery(9))},
		"fenugreek":  {testCandidate("f1", "store-s", "fenugreek", 3.50, withDelivery(9))},
	}

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), noFacts())

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.StorePlan.Stores, 2)
	s.Equal(StoreRolePrimary, plan.StorePlan.Stores[0].Role)
	s.Equal(StoreRoleSpecialty, plan.StorePlan.Stores[1].Role)

	s.Require().Len(plan.Items, 5)
	byName := map[string]CartItem{}
	for _, item := range plan.Items {
		byName[item.Ingredient.Name] = item
	}
	s.Equal("store-a", byName["rice"].StoreID)
	s.Equal("store-s", byName["sumac"].StoreID)
	s.Contains(byName["sumac"].Trace.Tradeoffs, "Ships in about a week")

	s.Require().Len(plan.Totals.PerStore, 2)
	s.Equal("store-a", plan.Totals.PerStore[0].StoreID)
	s.Equal("store-s", plan.Totals.PerStore[1].StoreID)
	s.InDelta(6.00, plan.Totals.PerStore[0].Ethical, 1e-9)
	s.InDelta(14.50, plan.Totals.PerStore[1].Ethical, 1e-9)
}

func (s *PlanPipelineTestSuite) TestPlan_NothingStockedAnywhere_StillReturnsFullCart() {
	// Arrange
	req := planRequest("saffron", "vanilla bean")
	pools := map[string][]catalog.Candidate{}

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), noFacts())

	// Assert
	s.Require().NoError(err)
	s.Empty(plan.StorePlan.Stores)
	s.Require().Len(plan.Items, 2)
	for _, item := range plan.Items {
		s.Equal(ItemStatusUnavailable, item.Status)
	}
	s.Zero(plan.Totals.Ethical)
	s.Zero(plan.Totals.Cheaper)
	s.Empty(plan.Totals.PerStore)
}

func (s *PlanPipelineTestSuite) TestPlan_SameInputs_ProduceIdenticalPlans() {
	// Arrange
	req := PlanRequest{
		Ingredients: []IngredientRequest{
			{Name: "turmeric", Form: catalog.FormPowder},
			{Name: "spinach", Form: catalog.FormFresh},
			{Name: "rice"},
		},
		Servings: 4,
	}
	pools := map[string][]catalog.Candidate{
		"turmeric": {
			testCandidate("t1", "store-a", "turmeric", 7.99, organic(), withForm(catalog.FormPowder), withPackaging(catalog.PackagingGlass)),
			testCandidate("t2", "store-a", "turmeric", 4.99, withForm(catalog.FormPowder)),
		},
		"spinach": {
			testCandidate("s1", "store-a", "spinach", 4.50, organic(), withForm(catalog.FormFresh)),
			testCandidate("s2", "store-a", "spinach", 2.80, withForm(catalog.FormFresh)),
			testCandidate("s3", "store-b", "spinach", 2.10, withForm(catalog.FormFresh)),
		},
		"rice": {
			testCandidate("r1", "store-a", "rice", 4.00),
			testCandidate("r2", "store-b", "rice", 3.80),
		},
	}
	facts := NewStaticFacts(nil, map[string]ResidueCategory{
		"turmeric": ResidueCategoryHigh,
		"spinach":  ResidueCategoryHigh,
		"rice":     ResidueCategoryLow,
	})

	// Act
	first, err1 := s.pipeline.Plan(req, pools, testStores(), facts)
	second, err2 := NewPipeline(DefaultEngineConfig(), testRegistry()).Plan(req, pools, testStores(), facts)

	// Assert
	s.Require().NoError(err1)
	s.Require().NoError(err2)
	s.Equal(first, second)
}

func (s *PlanPipelineTestSuite) TestPlan_DuplicateIngredientLines_ShareOneDecision() {
	// Arrange
	req := planRequest("rice", "Rice")
	pools := map[string][]catalog.Candidate{
		"rice": {testCandidate("r1", "store-a", "rice", 4.00)},
	}

	// Act
	plan, err := s.pipeline.Plan(req, pools, testStores(), noFacts())

	// Assert
	s.Require().NoError(err)
	s.Require().Len(plan.Items, 2)
	s.Equal(plan.Items[0].Default.ProductID, plan.Items[1].Default.ProductID)
	s.InDelta(8.00, plan.Totals.Ethical, 1e-9)
}
