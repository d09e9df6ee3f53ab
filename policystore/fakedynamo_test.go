package policystore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type item = map[string]map[string]any

// fakeDynamo implements the slice of the DynamoDB JSON 1.0 protocol the
// stores use.
type fakeDynamo struct {
	t      *testing.T
	mu     sync.Mutex
	keys   map[string][]string // table -> key attribute names
	items  map[string]map[string]item
	calls  map[string]int
	faults map[string][]string // op -> queued error codes
}

func newFakeDynamo(t *testing.T) *fakeDynamo {
	return &fakeDynamo{
		t:      t,
		keys:   map[string][]string{"AuthPolicyTable": {"email"}, "SharingTable": {"PK", "SK"}, "TenantTable": {"PK", "SK"}},
		items:  map[string]map[string]item{},
		calls:  map[string]int{},
		faults: map[string][]string{},
	}
}

func (f *fakeDynamo) fail(op string, codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], codes...)
}

func (f *fakeDynamo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamo) keyOf(table string, attrs item) string {
	var parts []string
	for _, k := range f.keys[table] {
		s, _ := attrs[k]["S"].(string)
		parts = append(parts, s)
	}
	return strings.Join(parts, "|")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeDynamo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")
	var in struct {
		TableName                 string
		IndexName                 string
		Key                       item
		Item                      item
		ExpressionAttributeValues item
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		f.t.Errorf("decode %s: %v", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++

	if q := f.faults[op]; len(q) > 0 {
		f.faults[op] = q[1:]
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"__type":  "com.amazonaws.dynamodb.v20120810#" + q[0],
			"message": "injected " + q[0],
		})
		return
	}
	if _, ok := f.keys[in.TableName]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"__type":  "com.amazonaws.dynamodb.v20120810#ResourceNotFoundException",
			"message": "Requested resource not found",
		})
		return
	}
	table := f.items[in.TableName]
	if table == nil {
		table = map[string]item{}
		f.items[in.TableName] = table
	}

	switch op {
	case "GetItem":
		if it, ok := table[f.keyOf(in.TableName, in.Key)]; ok {
			writeJSON(w, http.StatusOK, map[string]any{"Item": it})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	case "PutItem":
		table[f.keyOf(in.TableName, in.Item)] = in.Item
		writeJSON(w, http.StatusOK, map[string]any{})
	case "DeleteItem":
		delete(table, f.keyOf(in.TableName, in.Key))
		writeJSON(w, http.StatusOK, map[string]any{})
	case "Query":
		if in.IndexName != DefaultTenantIndex {
			f.t.Errorf("Query index = %q", in.IndexName)
		}
		want, _ := in.ExpressionAttributeValues[":tenant"]["S"].(string)
		items := []item{}
		for _, it := range table {
			if got, _ := it["tenant_id"]["S"].(string); got == want {
				items = append(items, it)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"Items": items, "Count": len(items)})
	case "DescribeTable":
		writeJSON(w, http.StatusOK, map[string]any{"Table": map[string]any{
			"TableName": in.TableName, "TableStatus": "ACTIVE",
		}})
	default:
		f.t.Errorf("unexpected operation %q", op)
		writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "UnknownOperationException"})
	}
}

// newDynamoClient returns a client talking to f with SDK retries disabled,
// so retry behavior under test is the store's own.
func newDynamoClient(t *testing.T, f *fakeDynamo) *dynamodb.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return dynamodb.New(dynamodb.Options{
		Region:                          "us-east-1",
		BaseEndpoint:                    aws.String(srv.URL),
		Credentials:                     credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		Retryer:                         aws.NopRetryer{},
		DisableValidateResponseChecksum: true,
	})
}
