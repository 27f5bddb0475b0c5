package handlers

import (
	"net/http"
	"testing"

	"clinic-app-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newSalesRouter(t *testing.T, db *gorm.DB, userID string) *gin.Engine {
	t.Helper()
	h := NewSalesHandler(db)
	r := gin.New()
	r.Use(asUser(userID))
	r.GET("/sales/stages", h.GetStages)
	r.POST("/sales/stages", h.CreateStage)
	r.DELETE("/sales/stages/:id", h.DeleteStage)
	r.POST("/sales/opportunities", h.CreateOpportunity)
	r.PUT("/sales/opportunities/:id", h.UpdateOpportunity)
	r.DELETE("/sales/opportunities/:id", h.DeleteOpportunity)
	r.POST("/sales/opportunities/:id/notes", h.CreateNote)
	return r
}

func seedStage(t *testing.T, db *gorm.DB, userID, name string, position int) models.SalesStage {
	t.Helper()
	stage := models.SalesStage{UserID: userID, Name: name, OrderPosition: position}
	if err := db.Create(&stage).Error; err != nil {
		t.Fatal(err)
	}
	return stage
}

func TestCreateStageAppendsToBoard(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	seedStage(t, db, user.ID, "Primeiro Contato", 1)
	r := newSalesRouter(t, db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/sales/stages", gin.H{"name": "Pós-venda"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var stage models.SalesStage
	decodeData(t, w, &stage)
	if stage.OrderPosition != 2 {
		t.Fatalf("orderPosition = %d, want 2", stage.OrderPosition)
	}
}

func TestDeleteStage(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	stage := seedStage(t, db, user.ID, "Negociação", 1)
	r := newSalesRouter(t, db, user.ID)

	t.Run("blocked while opportunities reference it", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/sales/opportunities", gin.H{
			"title": "Avaliação", "stageId": stage.ID,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create opportunity status = %d, body = %s", w.Code, w.Body.String())
		}
		var opp models.SalesOpportunity
		decodeData(t, w, &opp)

		if w := doJSON(t, r, http.MethodDelete, "/sales/stages/"+stage.ID, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("delete status = %d, want 400", w.Code)
		}

		// Removing the opportunity unblocks the stage.
		if w := doJSON(t, r, http.MethodDelete, "/sales/opportunities/"+opp.ID, nil); w.Code != http.StatusOK {
			t.Fatalf("delete opportunity status = %d", w.Code)
		}
		if w := doJSON(t, r, http.MethodDelete, "/sales/stages/"+stage.ID, nil); w.Code != http.StatusOK {
			t.Fatalf("delete stage status = %d, want 200", w.Code)
		}
	})
}

func TestOpportunityStageMove(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	from := seedStage(t, db, user.ID, "Primeiro Contato", 1)
	to := seedStage(t, db, user.ID, "Fechamento", 2)
	r := newSalesRouter(t, db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/sales/opportunities", gin.H{
		"title": "Avaliação", "stageId": from.ID, "estimatedValue": 1200.0,
	})
	var opp models.SalesOpportunity
	decodeData(t, w, &opp)

	w = doJSON(t, r, http.MethodPut, "/sales/opportunities/"+opp.ID, gin.H{
		"title": "Avaliação", "stageId": to.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	var moved models.SalesOpportunity
	decodeData(t, w, &moved)
	if moved.StageID != to.ID {
		t.Fatalf("stageId = %s, want %s", moved.StageID, to.ID)
	}

	t.Run("cannot move into another user's stage", func(t *testing.T) {
		other := seedUser(t, db, "other@example.com")
		foreign := seedStage(t, db, other.ID, "Alheio", 1)

		w := doJSON(t, r, http.MethodPut, "/sales/opportunities/"+opp.ID, gin.H{
			"title": "Avaliação", "stageId": foreign.ID,
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestDeleteOpportunityCascadesNotes(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	stage := seedStage(t, db, user.ID, "Negociação", 1)
	r := newSalesRouter(t, db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/sales/opportunities", gin.H{
		"title": "Avaliação", "stageId": stage.ID,
	})
	var opp models.SalesOpportunity
	decodeData(t, w, &opp)

	if w := doJSON(t, r, http.MethodPost, "/sales/opportunities/"+opp.ID+"/notes", gin.H{
		"content": "Ligar na segunda",
	}); w.Code != http.StatusCreated {
		t.Fatalf("create note status = %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, "/sales/opportunities/"+opp.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	var count int64
	if err := db.Model(&models.SalesNote{}).
		Where("opportunity_id = ?", opp.ID).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("notes remaining = %d, want 0", count)
	}
}
