package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/router"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// End-to-end walk through the public surface: staff onboarding, guest seating,
// an order moving through the kitchen, and the guest leaving.

func newIntegrationServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.Table{},
		&models.TableSession{},
		&models.GuestSession{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return router.SetupRouter(db, realtime.NewHub()), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func TestDineInFlow(t *testing.T) {
	r, db := newIntegrationServer(t)

	restaurant := models.Restaurant{Name: "Warung Integrasi", Slug: "warung-integrasi"}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("Failed to seed restaurant: %v", err)
	}

	// Staff registers and logs in
	w, _ := doJSON(t, r, "POST", "/register", gin.H{
		"name": "Budi", "email": "budi@example.com", "password": "rahasia123",
		"role": "staff", "restaurant_id": restaurant.ID,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Register returned %d: %s", w.Code, w.Body.String())
	}

	w, resp := doJSON(t, r, "POST", "/login", gin.H{
		"email": "budi@example.com", "password": "rahasia123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", w.Code, w.Body.String())
	}
	token, _ := resp["data"].(map[string]interface{})["token"].(string)
	if token == "" {
		t.Fatal("Login response carried no token")
	}
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	// Staff sets up a table and a menu
	w, resp = doJSON(t, r, "POST", "/admin/tables", gin.H{
		"table_number": "A1", "capacity": 2,
	}, authHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create table returned %d: %s", w.Code, w.Body.String())
	}
	tableID := resp["data"].(map[string]interface{})["id"].(float64)

	w, resp = doJSON(t, r, "POST", "/admin/categories", gin.H{"name": "Minuman"}, authHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create category returned %d: %s", w.Code, w.Body.String())
	}
	categoryID := resp["data"].(map[string]interface{})["ID"].(float64)

	w, resp = doJSON(t, r, "POST", "/admin/menus", gin.H{
		"restaurant_id": restaurant.ID, "category_id": categoryID,
		"name": "Es Jeruk", "price": 80, "available": true,
	}, authHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create menu returned %d: %s", w.Code, w.Body.String())
	}
	menuID := resp["data"].(map[string]interface{})["id"].(float64)

	// Guest scans the QR and joins
	w, resp = doJSON(t, r, "POST", fmt.Sprintf("/tables/%.0f/join", tableID), gin.H{
		"device_token": "phone-1",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Join returned %d: %s", w.Code, w.Body.String())
	}
	sessionKey := resp["data"].(map[string]interface{})["session_key"].(string)
	guestHeader := map[string]string{"X-Session-Key": sessionKey}

	// Guest orders
	w, resp = doJSON(t, r, "POST", fmt.Sprintf("/tables/%.0f/orders", tableID), gin.H{
		"items": []gin.H{{"menu_id": menuID, "quantity": 3}},
	}, guestHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create order returned %d: %s", w.Code, w.Body.String())
	}
	order := resp["data"].(map[string]interface{})
	orderID := order["id"].(float64)
	if total := order["total_amount"].(float64); total != 240 {
		t.Fatalf("Expected total 240, got %v", total)
	}

	// Kitchen walks the order to ready
	for _, status := range []string{"confirmed", "preparing", "ready"} {
		w, _ = doJSON(t, r, "PATCH", fmt.Sprintf("/admin/orders/%.0f/status", orderID),
			gin.H{"status": status}, authHeader)
		if w.Code != http.StatusOK {
			t.Fatalf("Transition to %s returned %d: %s", status, w.Code, w.Body.String())
		}
	}

	// Too late to cancel once the food is plated
	w, _ = doJSON(t, r, "PATCH", fmt.Sprintf("/admin/orders/%.0f/status", orderID),
		gin.H{"status": "cancelled"}, authHeader)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Cancel of ready order returned %d, want 422", w.Code)
	}

	w, _ = doJSON(t, r, "PATCH", fmt.Sprintf("/admin/orders/%.0f/status", orderID),
		gin.H{"status": "served"}, authHeader)
	if w.Code != http.StatusOK {
		t.Fatalf("Transition to served returned %d: %s", w.Code, w.Body.String())
	}

	// Guest pays and leaves; the seat frees up
	w, _ = doJSON(t, r, "POST", "/sessions/"+sessionKey+"/leave", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Leave returned %d: %s", w.Code, w.Body.String())
	}

	w, resp = doJSON(t, r, "GET", fmt.Sprintf("/tables/%.0f/occupancy", tableID), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Occupancy returned %d: %s", w.Code, w.Body.String())
	}
	if count := resp["data"].(map[string]interface{})["current_count"].(float64); count != 0 {
		t.Fatalf("Expected empty table after leave, got count %v", count)
	}
}
