// Package endpoint defines the static table of SendGrid newsletter API routes.
// Every route is a typed (API, Action) pair mapped to a fixed path, so call
// sites reference exported variables instead of free-form strings.
package endpoint

import (
	"fmt"
	"sort"
)

// API names a group of related SendGrid resources.
type API string

// Action names an operation within an API group.
type Action string

// API groups.
const (
	APINewsletter   API = "newsletter"
	APILists        API = "lists"
	APIEmail        API = "email"
	APIRecipients   API = "recipients"
	APISchedule     API = "schedule"
	APIIdentity     API = "identity"
	APISubuser      API = "subuser"
	APISendIP       API = "sendip"
	APIApps         API = "apps"
	APICategory     API = "category"
	APIStats        API = "stats"
	APIUnsubscribes API = "unsubscribes"
)

// Actions.
const (
	ActionAdd       Action = "add"
	ActionEdit      Action = "edit"
	ActionList      Action = "list"
	ActionGet       Action = "get"
	ActionDelete    Action = "del"
	ActionCreate    Action = "create"
	ActionActivate  Action = "activate"
	ActionCustomize Action = "customize"
)

// Endpoint identifies a single SendGrid route.
type Endpoint struct {
	API    API
	Action Action
}

// Known endpoints.
var (
	NewsletterAdd    = Endpoint{APINewsletter, ActionAdd}
	NewsletterEdit   = Endpoint{APINewsletter, ActionEdit}
	NewsletterList   = Endpoint{APINewsletter, ActionList}
	NewsletterGet    = Endpoint{APINewsletter, ActionGet}
	NewsletterDelete = Endpoint{APINewsletter, ActionDelete}

	ListsAdd    = Endpoint{APILists, ActionAdd}
	ListsEdit   = Endpoint{APILists, ActionEdit}
	ListsGet    = Endpoint{APILists, ActionGet}
	ListsDelete = Endpoint{APILists, ActionDelete}

	EmailAdd    = Endpoint{APIEmail, ActionAdd}
	EmailEdit   = Endpoint{APIEmail, ActionEdit}
	EmailGet    = Endpoint{APIEmail, ActionGet}
	EmailDelete = Endpoint{APIEmail, ActionDelete}

	RecipientsAdd    = Endpoint{APIRecipients, ActionAdd}
	RecipientsGet    = Endpoint{APIRecipients, ActionGet}
	RecipientsDelete = Endpoint{APIRecipients, ActionDelete}

	ScheduleAdd    = Endpoint{APISchedule, ActionAdd}
	ScheduleGet    = Endpoint{APISchedule, ActionGet}
	ScheduleDelete = Endpoint{APISchedule, ActionDelete}

	IdentityAdd  = Endpoint{APIIdentity, ActionAdd}
	IdentityList = Endpoint{APIIdentity, ActionList}
	IdentityGet  = Endpoint{APIIdentity, ActionGet}

	SubuserAdd    = Endpoint{APISubuser, ActionAdd}
	SubuserList   = Endpoint{APISubuser, ActionList}
	SubuserDelete = Endpoint{APISubuser, ActionDelete}
	SubuserEdit   = Endpoint{APISubuser, ActionEdit}

	SendIPAdd = Endpoint{APISendIP, ActionAdd}
	SendIPGet = Endpoint{APISendIP, ActionGet}

	AppsActivate  = Endpoint{APIApps, ActionActivate}
	AppsCustomize = Endpoint{APIApps, ActionCustomize}

	CategoryCreate = Endpoint{APICategory, ActionCreate}
	CategoryDelete = Endpoint{APICategory, ActionDelete}
	CategoryList   = Endpoint{APICategory, ActionList}
	CategoryAdd    = Endpoint{APICategory, ActionAdd}

	StatsGet = Endpoint{APIStats, ActionGet}

	UnsubscribesGet = Endpoint{APIUnsubscribes, ActionGet}
	UnsubscribesAdd = Endpoint{APIUnsubscribes, ActionAdd}
)

var paths = map[Endpoint]string{
	NewsletterAdd:    "/api/newsletter/add.json",
	NewsletterEdit:   "/api/newsletter/edit.json",
	NewsletterList:   "/api/newsletter/list.json",
	NewsletterGet:    "/api/newsletter/get.json",
	NewsletterDelete: "/api/newsletter/delete.json",

	ListsAdd:    "/api/newsletter/lists/add.json",
	ListsEdit:   "/api/newsletter/lists/edit.json",
	ListsGet:    "/api/newsletter/lists/get.json",
	ListsDelete: "/api/newsletter/lists/delete.json",

	EmailAdd:    "/api/newsletter/lists/email/add.json",
	EmailEdit:   "/api/newsletter/lists/email/edit.json",
	EmailGet:    "/api/newsletter/lists/email/get.json",
	EmailDelete: "/api/newsletter/lists/email/delete.json",

	RecipientsAdd:    "/api/newsletter/recipients/add.json",
	RecipientsGet:    "/api/newsletter/recipients/get.json",
	RecipientsDelete: "/api/newsletter/recipients/delete.json",

	ScheduleAdd:    "/api/newsletter/schedule/add.json",
	ScheduleGet:    "/api/newsletter/schedule/get.json",
	ScheduleDelete: "/api/newsletter/schedule/delete.json",

	IdentityAdd:  "/api/newsletter/identity/add.json",
	IdentityList: "/api/newsletter/identity/list.json",
	IdentityGet:  "/api/newsletter/identity/get.json",

	SubuserAdd:    "/apiv2/customer.add.json",
	SubuserList:   "/apiv2/customer.profile.json",
	SubuserDelete: "/apiv2/customer.delete.json",
	SubuserEdit:   "/apiv2/customer.profile.json",

	SendIPAdd: "/apiv2/customer.sendip.json",
	SendIPGet: "/apiv2/customer.ip.json",

	AppsActivate:  "/apiv2/customer.apps.json",
	AppsCustomize: "/apiv2/customer.apps.json",

	CategoryCreate: "/api/newsletter/category/create.json",
	CategoryDelete: "/api/newsletter/category/remove.json",
	CategoryList:   "/api/newsletter/category/list.json",
	CategoryAdd:    "/api/newsletter/category/add.json",

	StatsGet: "/apiv2/customer.stats.json",

	UnsubscribesGet: "/api/unsubscribes.get.json",
	UnsubscribesAdd: "/api/unsubscribes.add.json",
}

// cacheable marks read-only endpoints whose responses change rarely.
var cacheable = map[Endpoint]bool{
	IdentityList: true,
	IdentityGet:  true,
	CategoryList: true,
}

// String returns "api/action".
func (e Endpoint) String() string {
	return string(e.API) + "/" + string(e.Action)
}

// Path returns the URL path for the endpoint and whether it is known.
func (e Endpoint) Path() (string, bool) {
	p, ok := paths[e]
	return p, ok
}

// Cacheable reports whether responses for this endpoint may be cached.
func (e Endpoint) Cacheable() bool {
	return cacheable[e]
}

// Lookup resolves free-form API and action names to a known endpoint.
func Lookup(api, action string) (Endpoint, error) {
	e := Endpoint{API: API(api), Action: Action(action)}
	if _, ok := paths[e]; !ok {
		return Endpoint{}, fmt.Errorf("url not found for %q api and %q resource", api, action)
	}
	return e, nil
}

// All returns every known endpoint in a stable order.
func All() []Endpoint {
	out := make([]Endpoint, 0, len(paths))
	for e := range paths {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
