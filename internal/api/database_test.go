package api

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveBill", func() {
		var (
			rec *bill.Bill
			err error
		)

		BeforeEach(func() {
			rec = &bill.Bill{
				ID:        "test-id",
				Email:     "a@a",
				Type:      "Transports",
				Name:      "Taxi",
				Amount:    bill.NewAmount(decimal.RequireFromString("42.50")),
				Date:      "2024-01-15",
				Pct:       20,
				Status:    bill.StatusPending,
				CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveBill(rec)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the bill to the database", func() {
				saved, getErr := db.GetBill("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Name).To(Equal("Taxi"))
				Expect(saved.Amount.Equal(decimal.RequireFromString("42.5"))).To(BeTrue())
				Expect(saved.CreatedAt.Equal(rec.CreatedAt)).To(BeTrue())
			})
		})

		When("the bill already exists", func() {
			BeforeEach(func() {
				Expect(db.SaveBill(&bill.Bill{ID: "test-id", Name: "Old"})).To(Succeed())
			})

			It("should replace it", func() {
				saved, getErr := db.GetBill("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Name).To(Equal("Taxi"))
			})
		})
	})

	Describe("GetBill", func() {
		When("the bill does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetBill("missing")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListBills", func() {
		When("no bills exist", func() {
			It("should return an empty list", func() {
				bills, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				Expect(bills).To(BeEmpty())
			})
		})

		When("bills exist", func() {
			BeforeEach(func() {
				Expect(db.SaveBill(&bill.Bill{ID: "a", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})).To(Succeed())
				Expect(db.SaveBill(&bill.Bill{ID: "b", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})).To(Succeed())
			})

			It("should return them oldest first", func() {
				bills, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				Expect(bills).To(HaveLen(2))
				Expect(bills[0].ID).To(Equal("b"))
				Expect(bills[1].ID).To(Equal("a"))
			})
		})
	})

	Describe("DeleteBill", func() {
		BeforeEach(func() {
			Expect(db.SaveBill(&bill.Bill{ID: "test-id"})).To(Succeed())
		})

		It("should remove the bill", func() {
			Expect(db.DeleteBill("test-id")).To(Succeed())
			_, err := db.GetBill("test-id")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	When("the database is reopened", func() {
		BeforeEach(func() {
			Expect(db.SaveBill(&bill.Bill{ID: "test-id", Name: "Taxi"})).To(Succeed())
			Expect(db.Close()).To(Succeed())
			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep the saved bills", func() {
			saved, err := db.GetBill("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Name).To(Equal("Taxi"))
		})
	})
})
