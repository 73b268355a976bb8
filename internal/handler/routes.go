package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/sma-report-portal/internal/middleware"
	"github.com/noah-isme/sma-report-portal/internal/models"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Reports      *ReportHandler
	Mutations    *MutationHandler
	Deletions    *DeletionHandler
	Reservations *ReservationHandler
}

// Register mounts every session-protected route under prefix.
func Register(router gin.IRouter, prefix string, h Handlers, profiles *internalmiddleware.ProfileDecoder, logger *zap.Logger) {
	api := router.Group(prefix)
	api.Use(internalmiddleware.Session(profiles))

	reports := api.Group("/reports/students/:id")
	reports.GET("", h.Reports.StudentReport)
	reports.GET("/pdf", h.Reports.ReportPDF)
	reports.GET("/grades.csv", h.Reports.GradesCSV)

	grades := api.Group("/grades")
	grades.POST("", internalmiddleware.Audit(logger, "grade.create"), h.Mutations.CreateGrade)
	grades.PUT("/:id", internalmiddleware.Audit(logger, "grade.update"), h.Mutations.UpdateGrade)

	warnings := api.Group("/warnings")
	warnings.POST("", internalmiddleware.Audit(logger, "warning.create"), h.Mutations.CreateWarning)
	warnings.PUT("/:id", internalmiddleware.Audit(logger, "warning.update"), h.Mutations.UpdateWarning)

	suspensions := api.Group("/suspensions")
	suspensions.POST("", internalmiddleware.Audit(logger, "suspension.create"), h.Mutations.CreateSuspension)
	suspensions.PUT("/:id", internalmiddleware.Audit(logger, "suspension.update"), h.Mutations.UpdateSuspension)

	absences := api.Group("/absences")
	absences.POST("", internalmiddleware.Audit(logger, "absence.create"), h.Mutations.CreateAbsence)
	absences.POST("/bulk", internalmiddleware.Audit(logger, "absence.bulk_create"), h.Mutations.BulkAbsences)
	absences.PUT("/:id", internalmiddleware.Audit(logger, "absence.update"), h.Mutations.UpdateAbsence)

	groups := map[models.Collection]*gin.RouterGroup{
		models.CollectionGrades:      grades,
		models.CollectionWarnings:    warnings,
		models.CollectionSuspensions: suspensions,
		models.CollectionAbsences:    absences,
	}
	for _, collection := range models.Collections {
		groups[collection].POST("/:id/delete-request", h.Deletions.RequestDelete(collection))
	}

	deletions := api.Group("/deletions/:token")
	deletions.POST("/confirm", internalmiddleware.Audit(logger, "record.delete"), h.Deletions.ConfirmDelete)
	deletions.DELETE("", h.Deletions.CancelDelete)

	api.GET("/rooms", h.Reservations.Rooms)
	api.GET("/reservations", h.Reservations.Board)
	api.POST("/reservations", internalmiddleware.Audit(logger, "reservation.create"), h.Reservations.Create)
}
