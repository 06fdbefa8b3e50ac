package exec

import (
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/row"
)

// SystemTableSource resolves the RowSource behind one of the engine's
// built-in system.* virtual tables, or false if name names none of them.
func SystemTableSource(store *catalog.Store, txc *catalog.Tx, name string) (RowSource, bool) {
	switch name {
	case "system.namespaces":
		return systemNamespacesSource(store, txc), true
	case "system.tables":
		return systemTablesSource(store, txc), true
	case "system.views":
		return systemViewsSource(store, txc), true
	case "system.flows":
		return systemFlowsSource(store, txc), true
	case "system.migrations":
		return systemMigrationsSource(store, txc), true
	default:
		return nil, false
	}
}

func systemNamespacesSource(store *catalog.Store, txc *catalog.Tx) RowSource {
	return func() (column.Columns, error) {
		namespaces, err := store.ListNamespaces(txc)
		if err != nil {
			return column.Columns{}, err
		}
		ids, names := column.Undefined(0), column.Undefined(0)
		for _, ns := range namespaces {
			ids.PushUint(row.TypeUint64, ns.ID, true)
			names.PushString(row.TypeUtf8, ns.Name, true)
		}
		return column.Columns{Items: []column.Column{
			{Name: "id", Data: ids},
			{Name: "name", Data: names},
		}}, nil
	}
}

// systemTablesSource lists every table across every namespace, driven
// directly by catalog state rather than any stored row bytes.
func systemTablesSource(store *catalog.Store, txc *catalog.Tx) RowSource {
	return func() (column.Columns, error) {
		namespaces, err := store.ListNamespaces(txc)
		if err != nil {
			return column.Columns{}, err
		}
		ids, names, namespaceIDs, columnCounts := column.Undefined(0), column.Undefined(0), column.Undefined(0), column.Undefined(0)
		for _, ns := range namespaces {
			tables, err := store.ListTables(txc, ns.ID)
			if err != nil {
				return column.Columns{}, err
			}
			for _, t := range tables {
				ids.PushUint(row.TypeUint64, t.ID, true)
				names.PushString(row.TypeUtf8, t.Name, true)
				namespaceIDs.PushUint(row.TypeUint64, t.NamespaceID, true)
				columnCounts.PushUint(row.TypeUint64, uint64(len(t.Columns)), true)
			}
		}
		return column.Columns{Items: []column.Column{
			{Name: "id", Data: ids},
			{Name: "name", Data: names},
			{Name: "namespace_id", Data: namespaceIDs},
			{Name: "column_count", Data: columnCounts},
		}}, nil
	}
}

func systemViewsSource(store *catalog.Store, txc *catalog.Tx) RowSource {
	return func() (column.Columns, error) {
		views, err := store.ListViews(txc)
		if err != nil {
			return column.Columns{}, err
		}
		ids, names, namespaceIDs, flowIDs := column.Undefined(0), column.Undefined(0), column.Undefined(0), column.Undefined(0)
		for _, v := range views {
			ids.PushUint(row.TypeUint64, v.ID, true)
			names.PushString(row.TypeUtf8, v.Name, true)
			namespaceIDs.PushUint(row.TypeUint64, v.NamespaceID, true)
			flowIDs.PushUint(row.TypeUint64, v.FlowID, true)
		}
		return column.Columns{Items: []column.Column{
			{Name: "id", Data: ids},
			{Name: "name", Data: names},
			{Name: "namespace_id", Data: namespaceIDs},
			{Name: "flow_id", Data: flowIDs},
		}}, nil
	}
}

func systemFlowsSource(store *catalog.Store, txc *catalog.Tx) RowSource {
	return func() (column.Columns, error) {
		flows, err := store.ListFlows(txc)
		if err != nil {
			return column.Columns{}, err
		}
		ids, viewIDs, sourceIDs, paused := column.Undefined(0), column.Undefined(0), column.Undefined(0), column.Undefined(0)
		for _, f := range flows {
			ids.PushUint(row.TypeUint64, f.ID, true)
			viewIDs.PushUint(row.TypeUint64, f.ViewID, true)
			sourceIDs.PushUint(row.TypeUint64, f.SourceID, true)
			paused.PushBool(f.Paused, true)
		}
		return column.Columns{Items: []column.Column{
			{Name: "id", Data: ids},
			{Name: "view_id", Data: viewIDs},
			{Name: "source_id", Data: sourceIDs},
			{Name: "paused", Data: paused},
		}}, nil
	}
}

func systemMigrationsSource(store *catalog.Store, txc *catalog.Tx) RowSource {
	return func() (column.Columns, error) {
		migrations, err := store.ListMigrations(txc)
		if err != nil {
			return column.Columns{}, err
		}
		seqs, descriptions, appliedAt := column.Undefined(0), column.Undefined(0), column.Undefined(0)
		for _, m := range migrations {
			seqs.PushUint(row.TypeUint64, m.Sequence, true)
			descriptions.PushString(row.TypeUtf8, m.Description, true)
			appliedAt.PushInt(row.TypeInt64, m.AppliedAt, true)
		}
		return column.Columns{Items: []column.Column{
			{Name: "sequence", Data: seqs},
			{Name: "description", Data: descriptions},
			{Name: "applied_at", Data: appliedAt},
		}}, nil
	}
}
