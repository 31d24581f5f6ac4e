package bill

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Controller", func() {
	var (
		ctx        context.Context
		store      *mockStore
		identity   *mockIdentity
		navigator  *mockNavigator
		view       *mockView
		controller *Controller
		form       FormValues
	)

	pngFile := func(name string) Attachment {
		return Attachment{Name: name, ContentType: "image/png", Data: []byte("hello")}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockStore()
		identity = &mockIdentity{email: "a@a"}
		navigator = &mockNavigator{}
		view = &mockView{}
		form = FormValues{
			Type:   "Transports",
			Name:   "Taxi",
			Date:   "2023-01-01",
			Amount: "42",
		}
	})

	JustBeforeEach(func() {
		controller = NewController(store, identity, navigator, view)
	})

	It("should start idle without a pending upload", func() {
		Expect(controller.State()).To(Equal(StateIdle))
		Expect(controller.PendingUpload()).To(BeNil())
	})

	Describe("HandleChangeFile", func() {
		When("the file is a PNG", func() {
			var (
				v    Validation
				task *UploadTask
			)

			JustBeforeEach(func() {
				v, task = controller.HandleChangeFile(ctx, pngFile("hello.png"))
			})

			It("should accept the file", func() {
				Expect(v.Accepted).To(BeTrue())
				Expect(task).NotTo(BeNil())
			})

			It("should upload the file with the session email", func() {
				_, err := task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.creates).To(HaveLen(1))
				Expect(store.creates[0].Email).To(Equal("a@a"))
				Expect(store.creates[0].File.Name).To(Equal("hello.png"))
				Expect(store.creates[0].File.Data).To(Equal([]byte("hello")))
			})

			It("should cache a well formed URL and a file name", func() {
				_, err := task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				pending := controller.PendingUpload()
				Expect(pending).NotTo(BeNil())
				u, err := url.ParseRequestURI(pending.FileURL)
				Expect(err).NotTo(HaveOccurred())
				Expect(u.Scheme).To(Equal("https"))
				Expect(pending.FileName).NotTo(BeEmpty())
				Expect(pending.BillID).To(Equal("1234"))
			})

			It("should be ready once the upload finished", func() {
				<-task.Done()
				Eventually(controller.State).Should(Equal(StateReady))
			})

			It("should hide any previous file error", func() {
				Expect(view.fileError).To(BeEmpty())
				Expect(view.cleared).To(BeZero())
			})
		})

		When("the store only returns an ID", func() {
			BeforeEach(func() {
				store.createResult = &CreateResult{ID: "abc", FileURL: "https://store/x.png"}
			})

			It("should use the ID and the selected file name", func() {
				_, task := controller.HandleChangeFile(ctx, pngFile(`C:\fakepath\x.png`))
				pending, err := task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(pending.BillID).To(Equal("abc"))
				Expect(pending.FileName).To(Equal("x.png"))
			})
		})

		When("the content type is missing", func() {
			It("should derive it from the extension", func() {
				_, task := controller.HandleChangeFile(ctx, Attachment{Name: "scan.JPG", Data: []byte("x")})
				_, err := task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.creates[0].File.ContentType).To(Equal("image/jpeg"))
			})
		})

		When("the file is not an image", func() {
			var (
				v    Validation
				task *UploadTask
			)

			JustBeforeEach(func() {
				v, task = controller.HandleChangeFile(ctx, Attachment{Name: "hello.txt", Data: []byte("hello")})
			})

			It("should reject the file", func() {
				Expect(v.Accepted).To(BeFalse())
				Expect(v.Reason).To(Equal("unsupported-type"))
				Expect(task).To(BeNil())
			})

			It("should clear the file input and show an error", func() {
				Expect(view.cleared).To(Equal(1))
				Expect(view.fileError).To(Equal("unsupported-type"))
			})

			It("should not upload anything", func() {
				Consistently(store.createCount).Should(BeZero())
			})

			It("should stay idle", func() {
				Expect(controller.State()).To(Equal(StateIdle))
			})
		})

		When("the upload fails", func() {
			BeforeEach(func() {
				store.createErr = errStore
			})

			It("should report the error on the task", func() {
				_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
				_, err := task.Wait(ctx)
				Expect(err).To(MatchError(errStore))
			})

			It("should not display a file error", func() {
				_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
				<-task.Done()
				Expect(view.fileError).To(BeEmpty())
			})

			It("should keep the previous successful upload", func() {
				store.createErr = nil
				_, first := controller.HandleChangeFile(ctx, pngFile("first.png"))
				_, err := first.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())

				store.mu.Lock()
				store.createErr = errStore
				store.mu.Unlock()
				_, second := controller.HandleChangeFile(ctx, pngFile("second.png"))
				_, err = second.Wait(ctx)
				Expect(err).To(HaveOccurred())

				Expect(controller.PendingUpload()).NotTo(BeNil())
				Expect(controller.PendingUpload().FileURL).To(Equal("https://localhost:3456/images/test.jpg"))
			})
		})

		When("no user is logged in", func() {
			BeforeEach(func() {
				identity.err = ErrNoSession
			})

			It("should fail the task without calling the store", func() {
				_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
				_, err := task.Wait(ctx)
				Expect(err).To(MatchError(ErrNoSession))
				Expect(store.createCount()).To(BeZero())
			})
		})

		When("uploads overlap", func() {
			It("should keep the result of the upload that resolved last", func() {
				first := &CreateResult{Key: "first", FileURL: "https://store/first.png", FileName: "first.png"}
				second := &CreateResult{Key: "second", FileURL: "https://store/second.png", FileName: "second.png"}
				releaseFirst := store.hold("first.png", first)
				releaseSecond := store.hold("second.png", second)

				_, firstTask := controller.HandleChangeFile(ctx, pngFile("first.png"))
				_, secondTask := controller.HandleChangeFile(ctx, pngFile("second.png"))
				Expect(controller.State()).To(Equal(StateUploading))

				close(releaseSecond)
				_, err := secondTask.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(controller.PendingUpload().BillID).To(Equal("second"))
				Expect(controller.State()).To(Equal(StateUploading))

				close(releaseFirst)
				_, err = firstTask.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(controller.PendingUpload()).To(Equal(&PendingUpload{
					BillID:   "first",
					FileURL:  "https://store/first.png",
					FileName: "first.png",
				}))
				Expect(controller.State()).To(Equal(StateReady))
			})
		})

		When("a new file is selected after a successful upload", func() {
			It("should replace the pending upload", func() {
				_, first := controller.HandleChangeFile(ctx, pngFile("first.png"))
				_, err := first.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())

				store.mu.Lock()
				store.createResult = &CreateResult{Key: "5678", FileURL: "https://store/second.png", FileName: "second.png"}
				store.mu.Unlock()

				_, second := controller.HandleChangeFile(ctx, pngFile("second.png"))
				_, err = second.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())

				Expect(controller.PendingUpload()).To(Equal(&PendingUpload{
					BillID:   "5678",
					FileURL:  "https://store/second.png",
					FileName: "second.png",
				}))
			})
		})
	})

	Describe("HandleSubmit", func() {
		It("should call update exactly once without an attachment", func() {
			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.updateCount()).To(Equal(1))
			Expect(store.lastUpdate().FileURL).To(BeEmpty())
		})

		It("should call update exactly once with an attachment", func() {
			_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
			_, err := task.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.updateCount()).To(Equal(1))
		})

		It("should navigate to the bills list exactly once", func() {
			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(navigator.visited()).To(Equal([]string{RouteBills}))
		})

		It("should be done after a successful update", func() {
			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(controller.State()).To(Equal(StateDone))
		})

		It("should return the persisted bill", func() {
			saved, err := controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("generated-id"))
			Expect(saved.Status).To(Equal(StatusPending))
		})

		When("the form is blank", func() {
			BeforeEach(func() {
				form = FormValues{}
			})

			It("should still call update once and navigate", func() {
				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.updateCount()).To(Equal(1))
				Expect(store.lastUpdate().Pct).To(Equal(DefaultPct))
				Expect(store.lastUpdate().Status).To(Equal(StatusPending))
				Expect(navigator.visited()).To(Equal([]string{RouteBills}))
			})
		})

		When("the form values are malformed", func() {
			BeforeEach(func() {
				form.Type = "Casino"
				form.Amount = "lots"
			})

			It("should pass them through to a single update", func() {
				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.updateCount()).To(Equal(1))
				Expect(store.lastUpdate().Type).To(Equal("Casino"))
				Expect(store.lastUpdate().Amount.IsZero()).To(BeTrue())
			})
		})

		When("no user is logged in", func() {
			BeforeEach(func() {
				identity.err = ErrNoSession
			})

			It("should return the session error", func() {
				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).To(MatchError(ErrNoSession))
				Expect(store.updateCount()).To(BeZero())
			})
		})

		DescribeTable("when the update fails",
			func(code int) {
				storeErr := &StatusError{Code: code}
				store.updateErr = storeErr
				controller = NewController(store, identity, navigator, view)

				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).To(BeIdenticalTo(storeErr))
				Expect(StatusCode(err)).To(Equal(code))
				Expect(navigator.visited()).To(BeEmpty())
				Expect(controller.State()).To(Equal(StateReady))
			},
			Entry("not found", http.StatusNotFound),
			Entry("server error", http.StatusInternalServerError),
		)

		It("should allow another attempt after a failed update", func() {
			store.updateErr = errStore
			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).To(HaveOccurred())

			store.updateErr = nil
			_, err = controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.updateCount()).To(Equal(2))
			Expect(navigator.visited()).To(HaveLen(1))
		})

		When("the upload is still in flight", func() {
			BeforeEach(func() {
				store.release = make(chan struct{})
			})

			It("should submit the snapshot without the receipt", func() {
				_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
				Expect(controller.State()).To(Equal(StateUploading))

				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.lastUpdate().FileURL).To(BeEmpty())

				close(store.release)
				_, err = task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(controller.State()).To(Equal(StateDone))
			})

			It("should go back to uploading when the update fails", func() {
				store.updateErr = errStore
				_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))

				_, err := controller.HandleSubmit(ctx, form)
				Expect(err).To(MatchError(errStore))
				Expect(controller.State()).To(Equal(StateUploading))

				close(store.release)
				_, err = task.Wait(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(controller.State()).To(Equal(StateReady))
			})
		})
	})

	Describe("scenarios", func() {
		It("A: uploads hello.png then submits a bill carrying its URL", func() {
			store.createResult = &CreateResult{Key: "47qAXb6fIm2zOKkLzMro", FileURL: "https://store/hello.png", FileName: "hello.png"}

			_, task := controller.HandleChangeFile(ctx, pngFile("hello.png"))
			_, err := task.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = controller.HandleSubmit(ctx, FormValues{Name: "Taxi", Amount: "42", Date: "2023-01-01"})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.updateCount()).To(Equal(1))
			Expect(navigator.visited()).To(Equal([]string{RouteBills}))

			sent := store.lastUpdate()
			Expect(sent.FileURL).To(Equal("https://store/hello.png"))
			Expect(sent.FileName).To(Equal("hello.png"))
			Expect(sent.ID).To(Equal("47qAXb6fIm2zOKkLzMro"))
			Expect(sent.Status).To(Equal(StatusPending))
			Expect(sent.Email).To(Equal("a@a"))
			Expect(sent.Name).To(Equal("Taxi"))
			Expect(sent.Amount.IntPart()).To(Equal(int64(42)))
			Expect(sent.Date).To(Equal("2023-01-01"))
			Expect(sent.Pct).To(Equal(20))
		})

		It("B: rejects hello.txt and submits without a receipt", func() {
			v, task := controller.HandleChangeFile(ctx, Attachment{Name: "hello.txt"})
			Expect(v.Accepted).To(BeFalse())
			Expect(task).To(BeNil())
			Expect(store.createCount()).To(BeZero())

			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.lastUpdate().FileURL).To(BeEmpty())
		})

		It("C: propagates a rejected update without navigating", func() {
			store.updateErr = errors.New("Error 404")

			_, err := controller.HandleSubmit(ctx, form)
			Expect(err).To(MatchError("Error 404"))
			Expect(navigator.visited()).To(BeEmpty())
		})
	})
})
