package models

// Default category labels offered by the clients. Transactions store the
// label as free text, so users are not limited to these.
var (
	IncomeCategories = []string{
		"Salary",
		"Rental Income",
		"Investment Income",
		"Side Job",
		"Other",
	}

	ExpenseCategories = []string{
		"Rent",
		"Groceries",
		"Bills",
		"Transport",
		"Health",
		"Education",
		"Entertainment",
		"Clothing",
		"Food",
		"Other",
	}
)
