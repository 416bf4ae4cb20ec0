package view

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/trainerdesk/internal/domain"
)

func newMountedCustomers(t *testing.T, api *fakeAPI, policy FailurePolicy) (*CustomerList, *recorder) {
	t.Helper()
	rec := &recorder{}
	l := NewCustomerList(api, Options{Notifier: rec, Policy: policy})
	settled(t, l.Mount(context.Background()))
	return l, rec
}

func seededAPI() *fakeAPI {
	api := newFakeAPI()
	api.customers = []domain.Customer{
		fakeCustomer(1, "Ada", "Lovelace", "a@x.com", "London"),
		fakeCustomer(2, "Alan", "Turing", "alan@bletchley.uk", "Wilmslow"),
		fakeCustomer(3, "Grace", "Hopper", "grace@navy.mil", "Arlington"),
	}
	return api
}

func TestCustomerList_MountFetchesOnce(t *testing.T) {
	api := seededAPI()
	l, rec := newMountedCustomers(t, api, NotifyParity)

	settled(t, l.Mount(context.Background()))

	v := l.Snapshot()
	assert.Len(t, v.Items, 3)
	assert.Equal(t, 3, v.Total)
	assert.False(t, v.Loading)
	assert.Empty(t, rec.all())

	lists, _, _ := api.calls()
	assert.Equal(t, 1, lists)
}

func TestCustomerList_LoadingReleasedAfterFetch(t *testing.T) {
	api := seededAPI()
	api.listGate = make(chan struct{})
	l := NewCustomerList(api, Options{})

	done := l.Mount(context.Background())
	assert.True(t, l.Snapshot().Loading, "loading must be set before the call settles")

	close(api.listGate)
	settled(t, done)
	assert.False(t, l.Snapshot().Loading)
}

func TestCustomerList_FetchFailureNotifies(t *testing.T) {
	api := seededAPI()
	api.listCustomersErr = domain.Upstream("customers.list", http.StatusBadGateway, "")

	for _, policy := range []FailurePolicy{NotifyParity, NotifyAlways} {
		t.Run(policy.String(), func(t *testing.T) {
			l, rec := newMountedCustomers(t, api, policy)

			v := l.Snapshot()
			assert.Empty(t, v.Items)
			assert.False(t, v.Loading)
			assert.Equal(t, []Notification{{Level: LevelError, Message: "Failed to fetch customers"}}, rec.all())
		})
	}
}

func TestCustomerList_SearchScenario(t *testing.T) {
	api := newFakeAPI()
	api.customers = []domain.Customer{fakeCustomer(1, "Ada", "Lovelace", "a@x.com", "London")}
	l, _ := newMountedCustomers(t, api, NotifyParity)

	l.SetSearch("ada")
	assert.Len(t, l.Snapshot().Items, 1)

	l.SetSearch("zzz")
	v := l.Snapshot()
	assert.Len(t, v.Items, 0)
	assert.Equal(t, 1, v.Total, "filtering must not touch the stored list")
}

func TestCustomerList_CreateAppends(t *testing.T) {
	api := seededAPI()
	l, rec := newMountedCustomers(t, api, NotifyParity)

	l.OpenCreate()
	assert.Equal(t, DialogOpen, l.Snapshot().Entity.State)

	err := l.Save(context.Background(), customerFields("Katherine", "Johnson", "kj@nasa.gov"))
	require.NoError(t, err)

	v := l.Snapshot()
	require.Len(t, v.Items, 4)
	last := v.Items[3]
	assert.Equal(t, "Katherine", last.Firstname)
	assert.True(t, last.HasLocator())
	assert.Equal(t, api.customers[3], last, "last element must equal the server entity")
	assert.Equal(t, DialogClosed, v.Entity.State)
	assert.Nil(t, v.Form)
	assert.Empty(t, rec.all())
}

func TestCustomerList_UpdateReplacesInPlace(t *testing.T) {
	api := seededAPI()
	l, _ := newMountedCustomers(t, api, NotifyParity)
	before := l.Snapshot().Items

	key := before[1].Key()
	require.NoError(t, l.OpenEdit(key))

	v := l.Snapshot()
	assert.True(t, v.IsEditing())
	assert.Equal(t, "Alan", v.Form["firstname"])

	require.NoError(t, l.Save(context.Background(), customerFields("Alan", "Mathison", "alan@bletchley.uk")))

	after := l.Snapshot().Items
	require.Len(t, after, 3)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, key, after[1].Key())
	assert.Equal(t, "Mathison", after[1].Lastname)
	assert.False(t, l.Snapshot().IsEditing())
}

func TestCustomerList_DeleteRemoves(t *testing.T) {
	api := seededAPI()
	l, _ := newMountedCustomers(t, api, NotifyParity)
	before := l.Snapshot().Items

	require.NoError(t, l.OpenDelete(before[0].Key()))
	assert.Equal(t, DialogOpen, l.Snapshot().Confirm.State)

	require.NoError(t, l.ConfirmDelete(context.Background()))

	v := l.Snapshot()
	assert.Equal(t, []domain.Customer{before[1], before[2]}, v.Items)
	assert.Equal(t, DialogClosed, v.Confirm.State)
	assert.Nil(t, v.Deleting)
}

func TestCustomerList_StaleDeleteLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		policy        FailurePolicy
		notifications int
	}{
		{NotifyParity, 0},
		{NotifyAlways, 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			api := seededAPI()
			l, rec := newMountedCustomers(t, api, tt.policy)
			before := l.Snapshot().Items

			// Someone else already deleted the customer on the server.
			api.customers = api.customers[1:]

			require.NoError(t, l.OpenDelete(before[0].Key()))
			var err error
			require.NotPanics(t, func() { err = l.ConfirmDelete(context.Background()) })
			require.Error(t, err)
			assert.True(t, domain.IsServer(err))

			v := l.Snapshot()
			assert.Equal(t, before, v.Items)
			assert.Equal(t, DialogOpenWithError, v.Confirm.State)
			assert.Len(t, rec.all(), tt.notifications)
			assert.Equal(t, tt.notifications == 0, v.Confirm.Message() == "", "parity failures show no message")
		})
	}
}

func TestCustomerList_CreateFailureKeepsDialogOpen(t *testing.T) {
	api := seededAPI()
	api.createCustomerErr = domain.Network(errors.New("connection refused"), "customers.create")
	l, rec := newMountedCustomers(t, api, NotifyParity)

	l.OpenCreate()
	err := l.Save(context.Background(), customerFields("Katherine", "Johnson", "kj@nasa.gov"))
	require.Error(t, err)

	v := l.Snapshot()
	assert.Len(t, v.Items, 3)
	assert.Equal(t, DialogOpenWithError, v.Entity.State)
	assert.Equal(t, "Katherine", v.Form["firstname"], "form keeps what the user typed")
	assert.Empty(t, rec.all(), "customer mutation failures are only logged")
	assert.Empty(t, v.Entity.Message())
}

func TestCustomerList_UpdateFailureKeepsDialogOpen(t *testing.T) {
	tests := []struct {
		policy        FailurePolicy
		notifications []Notification
		message       string
	}{
		{NotifyParity, nil, ""},
		{NotifyAlways, []Notification{{Level: LevelError, Message: "Failed to edit customer"}}, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			api := seededAPI()
			api.updateCustomerErr = domain.Upstream("customers.update", http.StatusBadGateway, "")
			l, rec := newMountedCustomers(t, api, tt.policy)
			before := l.Snapshot().Items

			require.NoError(t, l.OpenEdit(before[1].Key()))
			err := l.Save(context.Background(), customerFields("Alan", "Mathison", "alan@bletchley.uk"))
			require.Error(t, err)

			v := l.Snapshot()
			assert.Equal(t, before, v.Items, "list is unchanged")
			assert.Equal(t, DialogOpenWithError, v.Entity.State)
			assert.True(t, v.IsEditing())
			assert.Equal(t, "Mathison", v.Form["lastname"], "form keeps what the user typed")
			assert.Equal(t, tt.notifications, rec.all())
			assert.Equal(t, tt.message, v.Entity.Message())
		})
	}
}

func TestCustomerList_ValidationNeverCallsServer(t *testing.T) {
	api := seededAPI()
	l, rec := newMountedCustomers(t, api, NotifyAlways)

	l.OpenCreate()
	err := l.Save(context.Background(), customerFields("Katherine", "Johnson", ""))
	requireCode(t, domain.EINVALID, err)

	v := l.Snapshot()
	assert.Equal(t, DialogOpenWithError, v.Entity.State)
	assert.NotEmpty(t, v.Entity.FieldError("email"))
	assert.Empty(t, rec.all())

	_, _, mutations := api.calls()
	assert.Zero(t, mutations)
}

func TestCustomerList_SaveRequiresOpenDialog(t *testing.T) {
	l, _ := newMountedCustomers(t, seededAPI(), NotifyParity)
	requireCode(t, domain.ECONFLICT, l.Save(context.Background(), customerFields("A", "B", "a@b.c")))
	requireCode(t, domain.ECONFLICT, l.ConfirmDelete(context.Background()))
}

func TestCustomerList_RefusesCustomerWithoutLocator(t *testing.T) {
	api := newFakeAPI()
	api.customers = []domain.Customer{{ID: 7, Firstname: "Anon"}}
	l, _ := newMountedCustomers(t, api, NotifyParity)

	requireCode(t, domain.EINVALID, l.OpenEdit("id:7"))
	requireCode(t, domain.EINVALID, l.OpenDelete("id:7"))
	requireCode(t, domain.ENOTFOUND, l.OpenEdit("http://api.test/customers/999"))
}

func TestCustomerList_CompletionAfterUnmountIsNoop(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		api := seededAPI()
		api.listGate = make(chan struct{})
		rec := &recorder{}
		l := NewCustomerList(api, Options{Notifier: rec})

		done := l.Mount(context.Background())
		l.Unmount()
		close(api.listGate)
		settled(t, done)

		v := l.Snapshot()
		assert.Empty(t, v.Items)
		assert.False(t, v.Loading)
	})

	t.Run("mutation", func(t *testing.T) {
		api := seededAPI()
		l, _ := newMountedCustomers(t, api, NotifyParity)

		api.mutateGate = make(chan struct{})
		l.OpenCreate()

		saved := make(chan error, 1)
		go func() {
			saved <- l.Save(context.Background(), customerFields("Katherine", "Johnson", "kj@nasa.gov"))
		}()

		l.Unmount()
		close(api.mutateGate)
		require.NoError(t, <-saved)

		assert.Len(t, l.Snapshot().Items, 3)
	})
}

func TestCustomerList_CloseDialogResetsSelection(t *testing.T) {
	l, _ := newMountedCustomers(t, seededAPI(), NotifyParity)
	require.NoError(t, l.OpenEdit(l.Snapshot().Items[0].Key()))

	l.CloseDialog()

	v := l.Snapshot()
	assert.Equal(t, DialogClosed, v.Entity.State)
	assert.Nil(t, v.Editing)
	assert.Nil(t, v.Form)
}
