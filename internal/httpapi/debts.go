package httpapi

import (
	"net/http"

	"mustawda/backend/internal/domain"
)

func (a *API) handleListDebtCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListDebtCustomers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a *API) handleGetDebtCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetDebtCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleCreateDebtCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.DebtCustomerInput
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	customer, err := a.service.CreateDebtCustomer(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (a *API) handleUpdateDebtCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.DebtCustomerInput
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	customer, err := a.service.UpdateDebtCustomer(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleDeleteDebtCustomer(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteDebtCustomer(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DeleteResult{Success: true})
}

func (a *API) handleListDebts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	debts, err := a.service.ListDebts(r.Context(), domain.DebtFilter{
		CustomerID: query.Get("customerId"),
		Status:     query.Get("status"),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (a *API) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := a.service.GetDebt(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (a *API) handleAddDebtPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.DebtPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.service.AddDebtPayment(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
