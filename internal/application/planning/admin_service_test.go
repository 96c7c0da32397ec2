package planning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	domainplanning "github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/cartwise/v3/pkg/errors"
	"github.com/cartwise/v3/test/testutils"
)

type CatalogAdminServiceTestSuite struct {
	suite.Suite
	catalogAdmin *testutils.MockCatalogAdmin
	facts        *testutils.MockFactsRepository
	service      inbound.CatalogAdminService
}

func TestCatalogAdminServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogAdminServiceTestSuite))
}

func (s *CatalogAdminServiceTestSuite) SetupTest() {
	s.catalogAdmin = testutils.NewMockCatalogAdmin()
	s.facts = testutils.NewMockFactsRepository()
	s.service = NewCatalogAdminService(s.catalogAdmin, s.facts, zap.NewNop())
}

func (s *CatalogAdminServiceTestSuite) TestReloadCatalog_Success_ReturnsFreshStats() {
	// Arrange
	stats := outbound.CatalogStats{
		Products:    120,
		Stores:      3,
		Generation:  2,
		Fingerprint: "catalog-v2",
	}
	s.catalogAdmin.On("Reload", mock.Anything).Return(nil)
	s.catalogAdmin.On("Stats", mock.Anything).Return(stats, nil)

	// Act
	got, err := s.service.ReloadCatalog(context.Background())

	// Assert
	s.Require().NoError(err)
	s.Equal(stats, *got)
	s.catalogAdmin.AssertCalled(s.T(), "Reload", mock.Anything)
}

func (s *CatalogAdminServiceTestSuite) TestReloadCatalog_SourceFailure_ReportsLoadError() {
	// Arrange
	s.catalogAdmin.On("Reload", mock.Anything).Return(context.DeadlineExceeded)

	// Act
	_, err := s.service.ReloadCatalog(context.Background())

	// Assert
	s.Require().Error(err)
	s.True(errors.Is(err, errors.CodeCatalogLoadFailed))
}

func (s *CatalogAdminServiceTestSuite) TestRecordRecall_NormalizesSubjectKey() {
	// Arrange
	s.facts.On("RecordRecall", mock.Anything, "sunshine farm", domainplanning.RecallStatusRecalled).
		Return(nil)

	// Act
	err := s.service.RecordRecall(context.Background(), inbound.RecordRecallCommand{
		Subject: "  Sunshine   Farms ",
		Status:  "recalled",
	})

	// Assert
	s.Require().NoError(err)
	s.facts.AssertExpectations(s.T())
}

func (s *CatalogAdminServiceTestSuite) TestRecordRecall_UnknownStatus_Rejected() {
	// Act
	err := s.service.RecordRecall(context.Background(), inbound.RecordRecallCommand{
		Subject: "turmeric",
		Status:  "quarantined",
	})

	// Assert
	s.Require().Error(err)
	s.True(errors.Is(err, errors.CodeInvalidRequest))
	s.facts.AssertNotCalled(s.T(), "RecordRecall", mock.Anything, mock.Anything, mock.Anything)
}

func (s *CatalogAdminServiceTestSuite) TestRecordRecall_BlankSubject_Rejected() {
	// Act
	err := s.service.RecordRecall(context.Background(), inbound.RecordRecallCommand{
		Status: "safe",
	})

	// Assert
	s.Require().Error(err)
	s.True(errors.Is(err, errors.CodeInvalidRequest))
}

func (s *CatalogAdminServiceTestSuite) TestSetResidueCategory_NormalizesIngredientKey() {
	// Arrange
	s.facts.On("SetResidueCategory", mock.Anything, "bell pepper", domainplanning.ResidueCategoryHigh).
		Return(nil)

	// Act
	err := s.service.SetResidueCategory(context.Background(), inbound.SetResidueCommand{
		Ingredient: "Bell  Pepper",
		Category:   "high_residue",
	})

	// Assert
	s.Require().NoError(err)
	s.facts.AssertExpectations(s.T())
}

func (s *CatalogAdminServiceTestSuite) TestSetResidueCategory_UnknownCategory_Rejected() {
	// Act
	err := s.service.SetResidueCategory(context.Background(), inbound.SetResidueCommand{
		Ingredient: "kale",
		Category:   "radioactive",
	})

	// Assert
	s.Require().Error(err)
	s.True(errors.Is(err, errors.CodeInvalidRequest))
}

func (s *CatalogAdminServiceTestSuite) TestActiveRecalls_PassesThroughRecords() {
	// Arrange
	records := []outbound.RecallRecord{
		{Key: "spinach", Status: domainplanning.RecallStatusRecalled},
	}
	s.facts.On("ActiveRecalls", mock.Anything).Return(records, nil)

	// Act
	got, err := s.service.ActiveRecalls(context.Background())

	// Assert
	s.Require().NoError(err)
	s.Equal(records, got)
}
