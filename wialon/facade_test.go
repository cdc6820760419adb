package wialon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/s0up4200/wialon/wialon"
)

type stubServer struct {
	*httptest.Server

	mu     sync.Mutex
	svc    string
	params string
	sid    string
	body   string
}

func newStubServer() *stubServer {
	stub := &stubServer{body: `{}`}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.ParseForm()).To(Succeed())

		stub.mu.Lock()
		stub.svc = r.Form.Get("svc")
		stub.params = r.Form.Get("params")
		stub.sid = r.Form.Get("sid")
		body := stub.body
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	return stub
}

func (s *stubServer) respondWith(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func (s *stubServer) lastCall() (string, string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc, s.params, s.sid
}

func (s *stubServer) client() *wialon.Client {
	u, err := url.Parse(s.URL)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(u.Port())
	Expect(err).NotTo(HaveOccurred())

	client, err := wialon.NewClient(zerolog.Nop(),
		wialon.WithScheme("http"),
		wialon.WithHost(u.Hostname()),
		wialon.WithPort(port),
		wialon.WithSessionID("facade-sid"),
	)
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("Facade", func() {
	var (
		ctx    context.Context
		stub   *stubServer
		client *wialon.Client
	)

	from := time.Unix(1700000000, 0)
	to := time.Unix(1700086400, 0)

	BeforeEach(func() {
		ctx = context.Background()
		stub = newStubServer()
		DeferCleanup(stub.Close)
		client = stub.client()
	})

	DescribeTable("maps parameters onto remote keys",
		func(response string, invoke func(*wialon.Client) error, wantSvc, wantParams string) {
			stub.respondWith(response)

			Expect(invoke(client)).To(Succeed())

			svc, params, sid := stub.lastCall()
			Expect(svc).To(Equal(wantSvc))
			Expect(params).To(MatchJSON(wantParams))
			Expect(sid).To(Equal("facade-sid"))
		},
		Entry("search items", `{"items":[]}`,
			func(c *wialon.Client) error {
				_, err := c.SearchItems(ctx, wialon.SearchItemsParams{
					Spec: wialon.SearchSpec{
						ItemsType:     wialon.ItemTypeUnitGroup,
						PropName:      "sys_name",
						PropValueMask: "North*",
						SortType:      "sys_name",
						PropType:      "property",
					},
					Force: 1,
					Flags: wialon.FlagBase | wialon.FlagCustomProperties,
					From:  0,
					To:    50,
				})
				return err
			},
			"core/search_items",
			`{"spec":{"itemsType":"avl_unit_group","propName":"sys_name","propValueMask":"North*","sortType":"sys_name","propType":"property","or_logic":false},"force":1,"flags":3,"from":0,"to":50}`),
		Entry("search item", `{"item":{"id":10}}`,
			func(c *wialon.Client) error {
				_, err := c.SearchItem(ctx, 10, wialon.FlagBase)
				return err
			},
			"core/search_item", `{"id":10,"flags":1}`),
		Entry("create auth hash", `{"authHash":"h"}`,
			func(c *wialon.Client) error {
				_, err := c.CreateAuthHash(ctx)
				return err
			},
			"core/create_auth_hash", `{}`),
		Entry("duplicate session", `{"eid":"other"}`,
			func(c *wialon.Client) error {
				_, err := c.DuplicateSession(ctx, wialon.DuplicateParams{OperateAs: "ops", ContinueCurrentSession: true})
				return err
			},
			"core/duplicate", `{"operateAs":"ops","continueCurrentSession":true}`),
		Entry("update data flags", `[]`,
			func(c *wialon.Client) error {
				_, err := c.UpdateDataFlags(ctx, []wialon.DataFlagSpec{
					{Type: "type", Data: "avl_unit", Flags: wialon.FlagUnitLastMessage, Mode: wialon.DataFlagsModeAdd},
				})
				return err
			},
			"core/update_data_flags", `{"spec":[{"type":"type","data":"avl_unit","flags":1024,"mode":1}]}`),
		Entry("hardware types", `[]`,
			func(c *wialon.Client) error {
				_, err := c.GetHWTypes(ctx, wialon.HWTypesParams{FilterType: "name", FilterValue: []any{"Teltonika FMB920"}, IncludeType: true})
				return err
			},
			"core/get_hw_types", `{"filterType":"name","filterValue":["Teltonika FMB920"],"includeType":true,"ignoreRename":false}`),
		Entry("create unit", `{"item":{"id":99,"nm":"Truck 1"},"flags":1}`,
			func(c *wialon.Client) error {
				_, err := c.CreateUnit(ctx, wialon.CreateUnitParams{CreatorID: 5, Name: " Truck 1 ", HWTypeID: 7, DataFlags: wialon.FlagBase})
				return err
			},
			"core/create_unit", `{"creatorId":5,"name":"Truck 1","hwTypeId":7,"dataFlags":1}`),
		Entry("update name", `{"nm":"Truck 2"}`,
			func(c *wialon.Client) error {
				_, err := c.UpdateName(ctx, 99, "Truck 2")
				return err
			},
			"item/update_name", `{"itemId":99,"name":"Truck 2"}`),
		Entry("delete item", `{}`,
			func(c *wialon.Client) error {
				return c.DeleteItem(ctx, 99)
			},
			"item/delete_item", `{"itemId":99}`),
		Entry("exec command", `{}`,
			func(c *wialon.Client) error {
				return c.ExecCommand(ctx, wialon.ExecCommandParams{
					ItemID:      99,
					CommandName: "block engine",
					LinkType:    "tcp",
					Timeout:     60,
				})
			},
			"unit/exec_cmd", `{"itemId":99,"commandName":"block engine","linkType":"tcp","param":"","timeout":60,"flags":0}`),
		Entry("update unit group", `{"u":[]}`,
			func(c *wialon.Client) error {
				_, err := c.UpdateUnitGroupUnits(ctx, 12, nil)
				return err
			},
			"unit_group/update_units", `{"itemId":12,"units":[]}`),
		Entry("load interval", `{"count":0,"messages":[]}`,
			func(c *wialon.Client) error {
				_, err := c.LoadInterval(ctx, wialon.LoadIntervalParams{ItemID: 99, From: from, To: to, LoadCount: 100})
				return err
			},
			"messages/load_interval", `{"itemId":99,"timeFrom":1700000000,"timeTo":1700086400,"flags":0,"flagsMask":0,"loadCount":100}`),
		Entry("load last", `{"count":0,"messages":[]}`,
			func(c *wialon.Client) error {
				_, err := c.LoadLast(ctx, wialon.LoadLastParams{ItemID: 99, LastTime: to, LastCount: 10, Flags: 1, FlagsMask: 65281, LoadCount: 10})
				return err
			},
			"messages/load_last", `{"itemId":99,"lastTime":1700086400,"lastCount":10,"flags":1,"flagsMask":65281,"loadCount":10}`),
		Entry("unload messages", `{}`,
			func(c *wialon.Client) error {
				return c.UnloadMessages(ctx)
			},
			"messages/unload", `{}`),
		Entry("exec report", `{"reportResult":{"tables":[]}}`,
			func(c *wialon.Client) error {
				_, err := c.ExecReport(ctx, wialon.ExecReportParams{
					ResourceID: 1,
					TemplateID: 2,
					ObjectID:   3,
					From:       from,
					To:         to,
				})
				return err
			},
			"report/exec_report", `{"reportResourceId":1,"reportTemplateId":2,"reportObjectId":3,"reportObjectSecId":0,"interval":{"from":1700000000,"to":1700086400,"flags":0}}`),
		Entry("result rows", `[]`,
			func(c *wialon.Client) error {
				_, err := c.GetResultRows(ctx, 0, 0, 19)
				return err
			},
			"report/get_result_rows", `{"tableIndex":0,"indexFrom":0,"indexTo":19}`),
		Entry("cleanup result", `{}`,
			func(c *wialon.Client) error {
				return c.CleanupResult(ctx)
			},
			"report/cleanup_result", `{}`),
	)

	Describe("responses", func() {
		It("decodes search results", func() {
			stub.respondWith(`{"totalItemsCount":3,"indexFrom":0,"indexTo":1,"items":[
				{"id":1,"nm":"Truck 1","cls":2,"uacl":-1,"pos":{"t":1700000000,"y":53.9,"x":27.5,"s":40}},
				{"id":2,"nm":"Truck 2","cls":2,"uacl":-1}
			]}`)

			resp, err := client.SearchItems(ctx, wialon.NewSearchByName(wialon.ItemTypeUnit, "Truck*", wialon.FlagBase|wialon.FlagUnitLastMessage))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(2))
			Expect(resp.HasMoreItems()).To(BeTrue())

			first := resp.Items[0]
			Expect(first.Name).To(Equal("Truck 1"))
			Expect(first.HasPosition()).To(BeTrue())
			Expect(first.Position.Speed).To(Equal(40))
			Expect(first.Position.GetTime()).To(Equal(from))
			Expect(string(first.Raw)).To(ContainSubstring(`"uacl":-1`))
			Expect(resp.Items[1].HasPosition()).To(BeFalse())
		})

		It("returns the stored name", func() {
			stub.respondWith(`{"nm":"Renamed"}`)
			name, err := client.UpdateName(ctx, 1, "renamed")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Renamed"))
		})

		It("returns group members", func() {
			stub.respondWith(`{"u":[1,2,3]}`)
			units, err := client.UpdateUnitGroupUnits(ctx, 12, []int64{1, 2, 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(Equal([]int64{1, 2, 3}))
		})

		It("unwraps the report result", func() {
			stub.respondWith(`{"reportResult":{"msgsRendered":5,"tables":[{"name":"unit_trips","label":"Trips","rows":2,"columns":3,"header":["Beginning","End","Mileage"]}]}}`)
			result, err := client.ExecReport(ctx, wialon.ExecReportParams{ResourceID: 1, TemplateID: 2, ObjectID: 3, From: from, To: to})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MessagesRendered).To(Equal(5))
			Expect(result.Tables).To(HaveLen(1))
			Expect(result.Tables[0].Header).To(ConsistOf("Beginning", "End", "Mileage"))
		})

		It("keeps the session after duplicating it", func() {
			stub.respondWith(`{"eid":"duplicated","user":{"id":7}}`)
			resp, err := client.DuplicateSession(ctx, wialon.DuplicateParams{OperateAs: "ops"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.EID).To(Equal("duplicated"))
			Expect(client.SessionID()).To(Equal("facade-sid"))
		})

		It("reports an empty interval as no messages", func() {
			stub.respondWith(`{"error":1001}`)
			_, err := client.LoadInterval(ctx, wialon.LoadIntervalParams{ItemID: 1, From: from, To: to})

			var apiErr *wialon.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.(*wialon.APIError).IsNoMessages()).To(BeTrue())
			Expect(wialon.KindOf(err)).To(Equal(wialon.KindRemote))
		})
	})

	Describe("local validation", func() {
		It("rejects an interval that ends before it starts", func() {
			_, err := client.LoadInterval(ctx, wialon.LoadIntervalParams{ItemID: 1, From: to, To: from})
			Expect(err).To(MatchError(wialon.ErrInvalidParams))
		})

		It("rejects an unknown data flags type", func() {
			_, err := client.UpdateDataFlags(ctx, []wialon.DataFlagSpec{{Type: "name"}})
			Expect(err).To(MatchError(wialon.ErrInvalidParams))
		})

		It("rejects a command without name", func() {
			err := client.ExecCommand(ctx, wialon.ExecCommandParams{ItemID: 1})
			Expect(err).To(MatchError(wialon.ErrInvalidParams))
		})

		It("rejects a unit without hardware type", func() {
			_, err := client.CreateUnit(ctx, wialon.CreateUnitParams{CreatorID: 1, Name: "x"})
			Expect(err).To(MatchError(wialon.ErrInvalidParams))
		})
	})
})
